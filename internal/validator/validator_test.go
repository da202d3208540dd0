package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestValidate_SaveAnswer(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     models.SaveAnswerRequest
		wantErr bool
	}{
		{"letter", models.SaveAnswerRequest{QuestionID: 1, SelectedAnswer: "C"}, false},
		{"lowercase letter", models.SaveAnswerRequest{QuestionID: 1, SelectedAnswer: "e"}, false},
		{"empty clears", models.SaveAnswerRequest{QuestionID: 1, SelectedAnswer: ""}, false},
		{"unknown letter", models.SaveAnswerRequest{QuestionID: 1, SelectedAnswer: "F"}, true},
		{"missing question", models.SaveAnswerRequest{SelectedAnswer: "A"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if tt.wantErr {
				var ve ValidationErrors
				require.True(t, errors.As(err, &ve))
				assert.NotEmpty(t, ve)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := New().Validate(&models.SaveAnswerRequest{SelectedAnswer: "Z"})

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	fields := []string{}
	for _, e := range ve {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"question_id", "selected_answer"}, fields)
}

func TestValidateExamCreate(t *testing.T) {
	v := New()
	base := func() *models.ExamCreateRequest {
		return &models.ExamCreateRequest{
			Title:           "Physics midterm",
			SubjectID:       "phy",
			SessionID:       "2025",
			ExamDate:        strPtr("2025-03-01"),
			TimeFrom:        strPtr("09:00"),
			TimeTo:          strPtr("11:00"),
			DurationMinutes: 30,
			TotalMarks:      intPtr(10),
			PassingMarks:    4,
		}
	}

	assert.NoError(t, v.ValidateExamCreate(base()))

	reversed := base()
	reversed.TimeFrom, reversed.TimeTo = strPtr("11:00"), strPtr("09:00")
	assert.Error(t, v.ValidateExamCreate(reversed))

	tooHigh := base()
	tooHigh.PassingMarks = 11
	assert.Error(t, v.ValidateExamCreate(tooHigh))

	badDate := base()
	badDate.ExamDate = strPtr("01/03/2025")
	assert.Error(t, v.ValidateExamCreate(badDate))
}

func TestValidateExamQuestions_Duplicates(t *testing.T) {
	err := New().ValidateExamQuestions(&models.ExamQuestionsRequest{
		Questions: []models.ExamQuestionRequest{{QuestionID: 1}, {QuestionID: 2}, {QuestionID: 1}},
	})

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve, 1)
	assert.Equal(t, "questions[2].question_id", ve[0].Field)
}
