package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/exam-engine/internal/events"
	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories/memory"
	"github.com/SAP-F-2025/exam-engine/internal/validator"
)

var t0 = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repo     *memory.Repository
	clock    *testClock
	events   *events.MockEventPublisher
	attempts AttemptService
	results  ResultService
	exams    ExamService

	examID uint
	// q[0..2] carry 2, 3 and 5 marks with correct answers A, B and C.
	q []uint
}

var (
	student1 = models.Principal{ID: "s1", Role: models.RoleStudent}
	student2 = models.Principal{ID: "s2", Role: models.RoleStudent}
	student3 = models.Principal{ID: "s3", Role: models.RoleStudent}
	student4 = models.Principal{ID: "s4", Role: models.RoleStudent}
	outsider = models.Principal{ID: "s9", Role: models.RoleStudent}
	teacher  = models.Principal{ID: "t1", Role: models.RoleTeacher}
	teacher2 = models.Principal{ID: "t2", Role: models.RoleTeacher}
	admin    = models.Principal{ID: "a1", Role: models.RoleAdmin}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture seeds one published 30 minute exam worth 10 marks (pass at 5), rostered for s1..s4.
// s1 and s2 sit in class 10/A, s3 in 10/B, s4 has no enrollment. t1 teaches 10/A.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo := memory.New()
	clock := &testClock{now: t0}
	logger := discardLogger()
	v := validator.New()
	publisher := events.NewMockEventPublisher(logger)
	opts := Options{Clock: clock.Now, Location: time.UTC}

	f := &fixture{
		repo:     repo,
		clock:    clock,
		events:   publisher,
		attempts: NewAttemptService(repo, publisher, logger, v, opts),
		results:  NewResultService(repo, publisher, logger, opts),
		exams:    NewExamService(repo, logger, v, opts),
	}

	questions := []*models.Question{
		{Text: "2 + 2", OptionA: "4", OptionB: "5", OptionC: "6", OptionD: "22", CorrectAnswer: models.OptionA, DefaultMarks: 2},
		{Text: "Capital of France", OptionA: "Rome", OptionB: "Paris", OptionC: "Madrid", OptionD: "Berlin", CorrectAnswer: models.OptionB, DefaultMarks: 3},
		{Text: "H2O is", OptionA: "Salt", OptionB: "Air", OptionC: "Water", OptionD: "Fire", CorrectAnswer: models.OptionC, DefaultMarks: 5},
	}
	rows := make([]models.ExamQuestion, 0, len(questions))
	for i, q := range questions {
		require.NoError(t, repo.Question().Create(ctx, q))
		f.q = append(f.q, q.ID)
		rows = append(rows, models.ExamQuestion{QuestionID: q.ID, Marks: q.DefaultMarks, DisplayOrder: i + 1})
	}

	exam := &models.Exam{
		Title:           "Midterm",
		SubjectID:       "math",
		SessionID:       "2026-S1",
		DurationMinutes: 30,
		TotalMarks:      10,
		PassingMarks:    5,
		IsPublished:     true,
		CreatedBy:       teacher.ID,
	}
	require.NoError(t, repo.Exam().Create(ctx, exam))
	f.examID = exam.ID
	require.NoError(t, repo.Exam().ReplaceQuestions(ctx, exam.ID, rows))
	require.NoError(t, repo.Directory().ReplaceRoster(ctx, exam.ID, []string{"s1", "s2", "s3", "s4"}))

	for _, e := range []*models.StudentEnrollment{
		{StudentID: "s1", SessionID: "2026-S1", ClassID: "10", SectionID: "A"},
		{StudentID: "s2", SessionID: "2026-S1", ClassID: "10", SectionID: "A"},
		{StudentID: "s3", SessionID: "2026-S1", ClassID: "10", SectionID: "B"},
	} {
		require.NoError(t, repo.Directory().UpsertEnrollment(ctx, e))
	}
	require.NoError(t, repo.Directory().AssignTeacher(ctx, &models.TeacherAssignment{TeacherID: teacher.ID, ClassID: "10", SectionID: "A"}))

	for _, u := range []*models.User{
		{ID: "s1", FullName: "Student One"},
		{ID: "s2", FullName: "Student Two"},
		{ID: "s3", FullName: "Student Three"},
	} {
		repo.PutUser(u)
	}

	return f
}

func (f *fixture) start(t *testing.T, student models.Principal) *models.StartAttemptResponse {
	t.Helper()
	resp, err := f.attempts.Start(context.Background(), f.examID, student)
	require.NoError(t, err)
	return resp
}

func (f *fixture) answer(t *testing.T, attemptID uint, student models.Principal, questionID uint, option string) {
	t.Helper()
	err := f.attempts.SaveAnswer(context.Background(), attemptID, &models.SaveAnswerRequest{
		QuestionID:     questionID,
		SelectedAnswer: option,
	}, student)
	require.NoError(t, err)
}
