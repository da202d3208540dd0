package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestExamService_CreateAndSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	exam, err := f.exams.Create(ctx, &models.ExamCreateRequest{
		Title:           "Final",
		SubjectID:       "math",
		SessionID:       "2026-S1",
		ExamDate:        strPtr("2026-03-02"),
		TimeFrom:        strPtr("09:30"),
		TimeTo:          strPtr("11:00"),
		DurationMinutes: 60,
		PassingMarks:    4,
	}, teacher)
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, exam.CreatedBy)
	assert.False(t, exam.IsPublished)
	require.NotNil(t, exam.TimeFrom)
	assert.Equal(t, 9*time.Hour+30*time.Minute, time.Duration(*exam.TimeFrom))

	window := WindowFor(exam, t0, time.UTC)
	require.NotNil(t, window.Opens)
	require.NotNil(t, window.Closes)
	assert.Equal(t, time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC), *window.Opens)
	assert.Equal(t, time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC), *window.Closes)

	t.Run("rejects inverted window", func(t *testing.T) {
		_, err := f.exams.Create(ctx, &models.ExamCreateRequest{
			Title: "Bad", SubjectID: "math", SessionID: "2026-S1",
			TimeFrom: strPtr("11:00"), TimeTo: strPtr("10:00"), DurationMinutes: 30,
		}, teacher)
		assert.True(t, IsValidationError(err))
	})

	t.Run("students cannot create", func(t *testing.T) {
		_, err := f.exams.Create(ctx, &models.ExamCreateRequest{
			Title: "Nope", SubjectID: "math", SessionID: "2026-S1", DurationMinutes: 30,
		}, student1)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestExamService_SetQuestionsAndPublish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	exam, err := f.exams.Create(ctx, &models.ExamCreateRequest{
		Title: "Quiz", SubjectID: "math", SessionID: "2026-S1", DurationMinutes: 15,
	}, teacher)
	require.NoError(t, err)

	_, err = f.exams.SetPublished(ctx, exam.ID, true, teacher)
	assert.ErrorIs(t, err, ErrValidationFailed)

	resp, err := f.exams.SetQuestions(ctx, exam.ID, &models.ExamQuestionsRequest{
		Questions: []models.ExamQuestionRequest{
			{QuestionID: f.q[2], DisplayOrder: 2},
			{QuestionID: f.q[0], Marks: intPtr(4), DisplayOrder: 1},
		},
	}, teacher)
	require.NoError(t, err)
	require.Equal(t, 2, resp.QuestionCount)
	assert.Equal(t, f.q[0], resp.Questions[0].QuestionID)
	assert.Equal(t, 4, resp.Questions[0].Marks)
	assert.Equal(t, 5, resp.Questions[1].Marks)

	_, err = f.exams.SetQuestions(ctx, exam.ID, &models.ExamQuestionsRequest{
		Questions: []models.ExamQuestionRequest{{QuestionID: 9999}},
	}, teacher)
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	_, err = f.exams.SetQuestions(ctx, exam.ID, &models.ExamQuestionsRequest{
		Questions: []models.ExamQuestionRequest{{QuestionID: f.q[0]}, {QuestionID: f.q[0]}},
	}, teacher)
	assert.True(t, IsValidationError(err))

	_, err = f.exams.SetRoster(ctx, exam.ID, &models.ExamRosterRequest{StudentIDs: []string{"s1"}}, teacher2)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	resp, err = f.exams.SetRoster(ctx, exam.ID, &models.ExamRosterRequest{StudentIDs: []string{"s1", "s2", "s1"}}, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.RosterSize)

	resp, err = f.exams.SetPublished(ctx, exam.ID, true, teacher)
	require.NoError(t, err)
	assert.True(t, resp.IsPublished)

	// Total marks were left at 0, so the attempt totals the question marks.
	start, err := f.attempts.Start(ctx, exam.ID, student1)
	require.NoError(t, err)
	assert.Equal(t, 9, start.Exam.TotalMarks)
	assert.Equal(t, 900, start.RemainingSeconds)
}

func TestExamService_GetByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.exams.GetByID(ctx, f.examID, teacher2)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.QuestionCount)
	assert.Equal(t, 4, resp.RosterSize)

	_, err = f.exams.GetByID(ctx, 9999, admin)
	assert.ErrorIs(t, err, ErrExamNotFound)

	_, err = f.exams.GetByID(ctx, f.examID, student1)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
