package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/services"
	"github.com/SAP-F-2025/exam-engine/internal/utils"
)

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.FromContext(c, h.logger)
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "user_id", c.GetString(ctxUserID))
	h.log(c).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.FullPath())
	h.log(c).Error(msg, args...)
}

// principal returns the authenticated caller, writing a 401 when there is none.
func (h *BaseHandler) principal(c *gin.Context) (models.Principal, bool) {
	p, ok := PrincipalFromContext(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, "User not authenticated", nil)
	}
	return p, ok
}

// parseIDParam returns 0 after writing a 400 when the path parameter is not a positive integer.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		details := "must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		h.respondError(c, http.StatusBadRequest, "Invalid "+param, details)
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return false
	}
	return true
}

func (h *BaseHandler) respondError(c *gin.Context, status int, message string, details any) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      errorCode(status),
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

func (h *BaseHandler) respondValidation(c *gin.Context, errs services.ValidationErrors) {
	out := make([]models.ValidationErrorResponse, 0, len(errs))
	for _, e := range errs {
		out = append(out, models.ValidationErrorResponse{
			Field:   e.Field,
			Message: e.Message,
			Value:   toString(e.Value),
			Code:    e.Rule,
		})
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
		Error:            http.StatusText(http.StatusBadRequest),
		Message:          "Validation failed",
		Code:             "VALIDATION_FAILED",
		Timestamp:        time.Now().UTC(),
		Path:             c.Request.URL.Path,
		ValidationErrors: out,
	})
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.respondValidation(c, validationErrors)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.respondError(c, http.StatusForbidden, "Access denied", map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	// Eligibility
	case errors.Is(err, services.ErrOutsideExamWindow):
		h.respondError(c, http.StatusForbidden, "Exam is not open at this time", nil)
	case errors.Is(err, services.ErrNotEligible):
		h.respondError(c, http.StatusForbidden, "Student is not eligible for this exam", nil)
	case errors.Is(err, services.ErrExamNotPublished):
		h.respondError(c, http.StatusNotFound, "Exam not found", nil)
	case errors.Is(err, services.ErrExamNotFound):
		h.respondError(c, http.StatusNotFound, "Exam not found", nil)
	case errors.Is(err, services.ErrQuestionNotFound):
		h.respondError(c, http.StatusNotFound, "Question not found", err.Error())
	// Attempt lifecycle
	case errors.Is(err, services.ErrAlreadyAttempted):
		h.respondError(c, http.StatusConflict, "Exam already attempted", nil)
	case errors.Is(err, services.ErrDeadlineExpired):
		h.respondError(c, http.StatusConflict, "Attempt deadline has passed", nil)
	case errors.Is(err, services.ErrAttemptNotActive):
		h.respondError(c, http.StatusConflict, "Attempt is not in progress", nil)
	case errors.Is(err, services.ErrAttemptNotFound):
		h.respondError(c, http.StatusNotFound, "Attempt not found", nil)
	case errors.Is(err, services.ErrQuestionNotInExam):
		h.respondError(c, http.StatusNotFound, "Question is not part of this attempt", nil)
	case errors.Is(err, services.ErrInvalidAnswer):
		h.respondError(c, http.StatusBadRequest, "Invalid answer option", nil)
	case errors.Is(err, services.ErrInvalidCause):
		h.respondError(c, http.StatusBadRequest, "Invalid submit cause", nil)
	// Results
	case errors.Is(err, services.ErrResultNotPublished):
		h.respondError(c, http.StatusForbidden, "Results are not published", nil)
	case errors.Is(err, services.ErrResultNotFound):
		h.respondError(c, http.StatusNotFound, "Result not found", nil)
	// Generic
	case errors.Is(err, services.ErrValidationFailed):
		h.respondError(c, http.StatusBadRequest, "Validation failed", err.Error())
	case errors.Is(err, services.ErrPermissionDenied):
		h.respondError(c, http.StatusForbidden, "Access denied", nil)
	default:
		h.LogError(c, err, "Unexpected service error")
		h.respondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
