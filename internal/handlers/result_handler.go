package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/services"
	"github.com/SAP-F-2025/exam-engine/internal/utils"
	"github.com/SAP-F-2025/exam-engine/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ResultHandler struct {
	BaseHandler
	resultService services.ResultService
	validator     *validator.Validator
}

func NewResultHandler(resultService services.ResultService, validator *validator.Validator, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
		validator:     validator,
	}
}

// MyResult returns the caller's own graded attempt once results are published
// @Summary Get my result
// @Tags results
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} models.ResultDetail
// @Failure 403 {object} models.ErrorResponse
// @Router /exams/{id}/my-result [get]
func (h *ResultHandler) MyResult(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}

	result, err := h.resultService.MyResult(c.Request.Context(), examID, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CohortResults
// @Summary Ranked cohort results
// @Tags results
// @Produce json
// @Param id path uint true "Exam ID"
// @Param class_id query string false "Class filter"
// @Param section_id query string false "Section filter (requires class_id)"
// @Success 200 {object} models.CohortResults
// @Router /exams/{id}/results [get]
func (h *ResultHandler) CohortResults(c *gin.Context) {
	examID, filter, p, ok := h.cohortRequest(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing cohort results", "exam_id", examID, "class_id", filter.ClassID, "section_id", filter.SectionID)

	results, err := h.resultService.CohortResults(c.Request.Context(), examID, filter, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ExportCohortResults streams the ranked cohort as a spreadsheet.
// @Summary Export cohort results
// @Tags results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Exam ID"
// @Router /exams/{id}/results/export [get]
func (h *ResultHandler) ExportCohortResults(c *gin.Context) {
	examID, filter, p, ok := h.cohortRequest(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting cohort results", "exam_id", examID)

	var buf bytes.Buffer
	if err := h.resultService.ExportCohort(c.Request.Context(), examID, filter, p, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="exam-%d-results.xlsx"`, examID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// StudentResult
// @Summary Single student result
// @Tags results
// @Produce json
// @Param id path uint true "Exam ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} models.ResultDetail
// @Router /exams/{id}/results/{student_id} [get]
func (h *ResultHandler) StudentResult(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}
	studentID := c.Param("student_id")

	h.LogRequest(c, "Getting student result", "exam_id", examID, "student_id", studentID)

	result, err := h.resultService.StudentResult(c.Request.Context(), examID, studentID, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PublishResults opens or closes the student-facing result gate
// @Summary Publish results
// @Tags results
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param body body models.PublishRequest true "Publish flag"
// @Success 200 {object} models.PublishResultsResponse
// @Router /exams/{id}/publish-results [put]
func (h *ResultHandler) PublishResults(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
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

	h.LogRequest(c, "Publishing results", "exam_id", examID, "is_published", *req.IsPublished)

	resp, err := h.resultService.PublishResults(c.Request.Context(), examID, *req.IsPublished, p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ResultHandler) cohortRequest(c *gin.Context) (uint, models.CohortFilter, models.Principal, bool) {
	var filter models.CohortFilter
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return 0, filter, models.Principal{}, false
	}
	p, ok := h.principal(c)
	if !ok {
		return 0, filter, p, false
	}
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return 0, filter, p, false
	}
	return examID, filter, p, true
}
