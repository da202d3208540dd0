package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/services"
	"github.com/SAP-F-2025/exam-engine/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// StartAttempt starts or resumes the caller's attempt
// @Summary Start exam attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 201 {object} models.StartAttemptResponse
// @Success 200 {object} models.StartAttemptResponse "resumed"
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /exams/{id}/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting exam attempt", "exam_id", examID)

	resp, err := h.attemptService.Start(c.Request.Context(), examID, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// SaveAnswer records or clears one selection
// @Summary Save answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answer body models.SaveAnswerRequest true "Answer data"
// @Router /attempts/{id}/answers [post]
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req models.SaveAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Saving answer", "attempt_id", attemptID, "question_id", req.QuestionID)

	if err := h.attemptService.SaveAnswer(c.Request.Context(), attemptID, &req, p); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SubmitAttempt finalizes the attempt. Repeated calls return the stored result.
// @Summary Submit attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param body body models.SubmitAttemptRequest false "Submit cause"
// @Success 200 {object} models.AttemptSummary
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req models.SubmitAttemptRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	h.submit(c, attemptID, req.Cause, p)
}

// TerminateAttempt finalizes the attempt as a violation.
// @Summary Terminate attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.AttemptSummary
// @Router /attempts/{id}/terminate [post]
func (h *AttemptHandler) TerminateAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	h.submit(c, attemptID, models.CauseViolation, p)
}

func (h *AttemptHandler) submit(c *gin.Context, attemptID uint, cause models.SubmitCause, p models.Principal) {
	h.LogRequest(c, "Submitting attempt", "attempt_id", attemptID, "cause", cause)

	summary, err := h.attemptService.Submit(c.Request.Context(), attemptID, cause, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetAttempt returns status and remaining time
// @Summary Get attempt status
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.AttemptStatusResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	status, err := h.attemptService.GetStatus(c.Request.Context(), attemptID, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Heartbeat
// @Summary Attempt heartbeat
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.AttemptStatusResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /attempts/{id}/heartbeat [post]
func (h *AttemptHandler) Heartbeat(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	status, err := h.attemptService.Heartbeat(c.Request.Context(), attemptID, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
