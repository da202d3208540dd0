package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-engine/internal/events"
	"github.com/SAP-F-2025/exam-engine/internal/models"
)

// sitExam finalizes four attempts:
// s1 scores 5 at +10m, s2 scores 5 at +12m, s3 scores 10 at +15m, s4 is terminated at +20m.
func sitExam(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()

	attempts := map[string]uint{}
	for _, s := range []models.Principal{student1, student2, student3, student4} {
		attempts[s.ID] = f.start(t, s).AttemptID
	}

	f.clock.Set(t0.Add(10 * time.Minute))
	f.answer(t, attempts["s1"], student1, f.q[0], "A")
	f.answer(t, attempts["s1"], student1, f.q[1], "B")
	_, err := f.attempts.Submit(ctx, attempts["s1"], models.CauseManual, student1)
	require.NoError(t, err)

	f.clock.Set(t0.Add(12 * time.Minute))
	f.answer(t, attempts["s2"], student2, f.q[2], "C")
	_, err = f.attempts.Submit(ctx, attempts["s2"], models.CauseManual, student2)
	require.NoError(t, err)

	f.clock.Set(t0.Add(15 * time.Minute))
	f.answer(t, attempts["s3"], student3, f.q[0], "A")
	f.answer(t, attempts["s3"], student3, f.q[1], "B")
	f.answer(t, attempts["s3"], student3, f.q[2], "C")
	_, err = f.attempts.Submit(ctx, attempts["s3"], models.CauseManual, student3)
	require.NoError(t, err)

	f.clock.Set(t0.Add(20 * time.Minute))
	f.answer(t, attempts["s4"], student4, f.q[2], "C")
	_, err = f.attempts.Submit(ctx, attempts["s4"], models.CauseViolation, student4)
	require.NoError(t, err)
}

func studentIDs(rows []models.CohortResultRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.StudentID)
	}
	return out
}

func TestResultService_CohortRanking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sitExam(t, f)

	cohort, err := f.results.CohortResults(ctx, f.examID, models.CohortFilter{}, admin)
	require.NoError(t, err)

	assert.Equal(t, []string{"s3", "s1", "s2"}, studentIDs(cohort.Ranked))
	for i, row := range cohort.Ranked {
		assert.Equal(t, i+1, row.Rank)
	}
	assert.Equal(t, "Student Three", cohort.Ranked[0].StudentName)
	assert.Equal(t, "10", cohort.Ranked[0].ClassID)
	assert.Equal(t, "B", cohort.Ranked[0].SectionID)

	require.Len(t, cohort.Terminated, 1)
	assert.Equal(t, "s4", cohort.Terminated[0].StudentID)
	assert.Zero(t, cohort.Terminated[0].Rank)
	assert.Equal(t, models.AttemptTerminated, cohort.Terminated[0].Status)

	assert.Equal(t, models.CohortStats{
		Count:          3,
		PassedCount:    3,
		AverageMarks:   6.67,
		HighestMarks:   10,
		LowestMarks:    5,
		PassPercentage: 100,
	}, cohort.Stats)
}

func TestResultService_CohortScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sitExam(t, f)

	tests := []struct {
		name      string
		who       models.Principal
		filter    models.CohortFilter
		wantIDs   []string
		wantRanks []int
		wantErr   error
	}{
		{name: "admin filtered by class", who: admin, filter: models.CohortFilter{ClassID: "10"}, wantIDs: []string{"s3", "s1", "s2"}, wantRanks: []int{1, 2, 3}},
		{name: "admin filtered by section", who: admin, filter: models.CohortFilter{ClassID: "10", SectionID: "B"}, wantIDs: []string{"s3"}, wantRanks: []int{1}},
		{name: "teacher sees assigned section only", who: teacher, wantIDs: []string{"s1", "s2"}, wantRanks: []int{2, 3}},
		{name: "teacher filters own section", who: teacher, filter: models.CohortFilter{ClassID: "10", SectionID: "A"}, wantIDs: []string{"s1", "s2"}, wantRanks: []int{2, 3}},
		{name: "teacher without assignments sees nobody", who: teacher2, wantIDs: []string{}},
		{name: "teacher outside assignment", who: teacher, filter: models.CohortFilter{ClassID: "10", SectionID: "B"}, wantErr: ErrPermissionDenied},
		{name: "section without class", who: admin, filter: models.CohortFilter{SectionID: "A"}, wantErr: ErrValidationFailed},
		{name: "student", who: student1, wantErr: ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cohort, err := f.results.CohortResults(ctx, f.examID, tt.filter, tt.who)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, studentIDs(cohort.Ranked))
			for i, want := range tt.wantRanks {
				assert.Equal(t, want, cohort.Ranked[i].Rank)
			}
		})
	}

	t.Run("teacher does not see unenrolled terminated attempt", func(t *testing.T) {
		cohort, err := f.results.CohortResults(ctx, f.examID, models.CohortFilter{}, teacher)
		require.NoError(t, err)
		assert.Empty(t, cohort.Terminated)
	})
}

func TestResultService_PublicationGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sitExam(t, f)

	_, err := f.results.MyResult(ctx, f.examID, student2)
	assert.ErrorIs(t, err, ErrResultNotPublished)

	_, err = f.results.PublishResults(ctx, f.examID, true, teacher)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	before, err := f.results.StudentResult(ctx, f.examID, "s2", admin)
	require.NoError(t, err)

	resp, err := f.results.PublishResults(ctx, f.examID, true, admin)
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.True(t, resp.IsResultPublished)

	resp, err = f.results.PublishResults(ctx, f.examID, true, admin)
	require.NoError(t, err)
	assert.False(t, resp.Changed)
	require.Len(t, f.events.EventsOfType(events.TypeResultsPublished), 1)

	mine, err := f.results.MyResult(ctx, f.examID, student2)
	require.NoError(t, err)
	assert.Equal(t, before.ObtainedMarks, mine.ObtainedMarks)
	assert.Equal(t, before.Percentage, mine.Percentage)
	assert.Equal(t, 5, mine.ObtainedMarks)
	require.NotNil(t, mine.Rank)
	assert.Equal(t, 3, *mine.Rank)
	assert.Equal(t, "Midterm", mine.ExamTitle)

	require.Len(t, mine.Questions, 3)
	assert.Equal(t, models.OptionA, mine.Questions[0].CorrectAnswer)
	assert.False(t, mine.Questions[0].Answered)
	assert.True(t, mine.Questions[2].Answered)
	assert.True(t, mine.Questions[2].IsCorrect)
	assert.Equal(t, 5, mine.Questions[2].MarksObtained)

	terminated, err := f.results.MyResult(ctx, f.examID, student4)
	require.NoError(t, err)
	assert.Nil(t, terminated.Rank)
	assert.Equal(t, models.AttemptTerminated, terminated.Status)

	_, err = f.results.PublishResults(ctx, f.examID, false, admin)
	require.NoError(t, err)
	_, err = f.results.MyResult(ctx, f.examID, student2)
	assert.ErrorIs(t, err, ErrResultNotPublished)
}

func TestResultService_MyResultWithoutAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.results.PublishResults(ctx, f.examID, true, admin)
	require.NoError(t, err)

	_, err = f.results.MyResult(ctx, f.examID, student1)
	assert.ErrorIs(t, err, ErrResultNotFound)

	f.start(t, student1)
	_, err = f.results.MyResult(ctx, f.examID, student1)
	assert.ErrorIs(t, err, ErrResultNotFound)

	_, err = f.results.MyResult(ctx, 9999, student1)
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestResultService_StudentResultScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sitExam(t, f)

	detail, err := f.results.StudentResult(ctx, f.examID, "s1", teacher)
	require.NoError(t, err)
	assert.Equal(t, 5, detail.ObtainedMarks)
	require.NotNil(t, detail.Rank)
	assert.Equal(t, 2, *detail.Rank)

	_, err = f.results.StudentResult(ctx, f.examID, "s3", teacher)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.results.StudentResult(ctx, f.examID, "s4", teacher)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	detail, err = f.results.StudentResult(ctx, f.examID, "s4", admin)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptTerminated, detail.Status)

	_, err = f.results.StudentResult(ctx, f.examID, "s1", student2)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestResultService_ExportCohort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sitExam(t, f)

	var buf bytes.Buffer
	require.NoError(t, f.results.ExportCohort(ctx, f.examID, models.CohortFilter{}, admin, &buf))

	book, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Rank", rows[0][0])
	assert.Equal(t, []string{"1", "s3", "Student Three", "10", "B", "submitted"}, rows[1][:6])
	assert.Equal(t, "s2", rows[3][1])

	terminated, err := book.GetRows(terminatedSheet)
	require.NoError(t, err)
	require.Len(t, terminated, 2)
	assert.Equal(t, "s4", terminated[1][1])

	err = f.results.ExportCohort(ctx, f.examID, models.CohortFilter{ClassID: "10", SectionID: "B"}, teacher, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestWriteCohortSheet_RoundsPercentageForDisplay(t *testing.T) {
	book := excelize.NewFile()
	defer book.Close()

	rows := []models.CohortResultRow{{Rank: 1, StudentID: "s1", Status: models.AttemptSubmitted, ObtainedMarks: 1, TotalMarks: 3, Percentage: 100.0 / 3}}
	require.NoError(t, writeCohortSheet(book, "Sheet1", rows))

	got, err := book.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "33.33", got[1][8])
}
