package validator

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

// ValidateExamCreate runs the struct rules plus cross-field checks.
func (v *Validator) ValidateExamCreate(req *models.ExamCreateRequest) error {
	if err := v.Validate(req); err != nil {
		return err
	}

	var errs ValidationErrors

	if req.TimeFrom != nil && req.TimeTo != nil {
		from, errFrom := time.Parse(TimeOfDayLayout, *req.TimeFrom)
		to, errTo := time.Parse(TimeOfDayLayout, *req.TimeTo)
		if errFrom == nil && errTo == nil && !to.After(from) {
			errs = append(errs, ValidationError{
				Field:   "time_to",
				Message: "must be later than time_from",
				Value:   *req.TimeTo,
				Rule:    "exam_window",
			})
		}
	}

	if req.TotalMarks != nil && *req.TotalMarks > 0 && req.PassingMarks > *req.TotalMarks {
		errs = append(errs, ValidationError{
			Field:   "passing_marks",
			Message: fmt.Sprintf("must not exceed total_marks (%d)", *req.TotalMarks),
			Value:   req.PassingMarks,
			Rule:    "passing_marks",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateExamQuestions rejects duplicate question ids.
func (v *Validator) ValidateExamQuestions(req *models.ExamQuestionsRequest) error {
	if err := v.Validate(req); err != nil {
		return err
	}

	var errs ValidationErrors
	seen := make(map[uint]struct{}, len(req.Questions))
	for i, q := range req.Questions {
		if _, dup := seen[q.QuestionID]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].question_id", i),
				Message: "is listed more than once",
				Value:   q.QuestionID,
				Rule:    "unique",
			})
		}
		seen[q.QuestionID] = struct{}{}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
