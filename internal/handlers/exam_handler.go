package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/services"
	"github.com/SAP-F-2025/exam-engine/internal/utils"
	"github.com/SAP-F-2025/exam-engine/internal/validator"
)

type ExamHandler struct {
	BaseHandler
	examService services.ExamService
	validator   *validator.Validator
}

func NewExamHandler(examService services.ExamService, validator *validator.Validator, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		examService: examService,
		validator:   validator,
	}
}

// CreateExam
// @Summary Create exam
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body models.ExamCreateRequest true "Exam data"
// @Success 201 {object} models.Exam
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req models.ExamCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating exam", "title", req.Title)

	exam, err := h.examService.Create(c.Request.Context(), &req, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// GetExam
// @Summary Get exam with questions and roster size
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} models.ExamResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// SetQuestions replaces the ordered question list
// @Summary Set exam questions
// @Tags exams
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param questions body models.ExamQuestionsRequest true "Questions"
// @Success 200 {object} models.ExamResponse
// @Router /exams/{id}/questions [put]
func (h *ExamHandler) SetQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req models.ExamQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Setting exam questions", "exam_id", id, "count", len(req.Questions))

	exam, err := h.examService.SetQuestions(c.Request.Context(), id, &req, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// SetRoster replaces the eligible student list
// @Summary Set exam roster
// @Tags exams
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param roster body models.ExamRosterRequest true "Roster"
// @Success 200 {object} models.ExamResponse
// @Router /exams/{id}/roster [put]
func (h *ExamHandler) SetRoster(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req models.ExamRosterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Setting exam roster", "exam_id", id, "count", len(req.StudentIDs))

	exam, err := h.examService.SetRoster(c.Request.Context(), id, &req, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// SetPublished toggles student visibility
// @Summary Publish or unpublish exam
// @Tags exams
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param body body models.PublishRequest true "Publish flag"
// @Success 200 {object} models.ExamResponse
// @Router /exams/{id}/publish [put]
func (h *ExamHandler) SetPublished(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req models.PublishRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Setting exam publication", "exam_id", id, "is_published", *req.IsPublished)

	exam, err := h.examService.SetPublished(c.Request.Context(), id, *req.IsPublished, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}
