package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-engine/internal/events"
	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories/memory"
	"github.com/SAP-F-2025/exam-engine/internal/services"
	"github.com/SAP-F-2025/exam-engine/internal/utils"
	"github.com/SAP-F-2025/exam-engine/internal/validator"
)

// headerAuthenticator accepts tokens of the form "<role>:<user id>".
type headerAuthenticator struct{}

func (headerAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	role, id, ok := strings.Cut(token, ":")
	if !ok || id == "" || !models.UserRole(role).Valid() {
		return nil, errors.New("bad test token")
	}
	return &models.User{ID: id, Role: models.UserRole(role)}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	router *gin.Engine
	repo   *memory.Repository
	clock  *clock
	q      []uint
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	clk := &clock{now: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)}
	v := validator.New()

	sm := services.NewServiceManager(repo, events.NewMockEventPublisher(slogger), slogger, v, services.ServiceManagerConfig{
		Options: services.Options{Clock: clk.Now, Location: time.UTC},
	})
	require.NoError(t, sm.Initialize(ctx))
	t.Cleanup(func() { _ = sm.Shutdown(context.Background()) })

	logger := utils.NewSlogLogger(slogger)
	router := gin.New()
	SetupMiddleware(router, logger)
	NewHandlerManager(sm, v, logger, HandlerConfig{
		Authenticator: headerAuthenticator{},
		DB:            repo,
	}).SetupRoutes(router)

	ts := &testServer{router: router, repo: repo, clock: clk}

	for _, q := range []*models.Question{
		{Text: "2 + 2", OptionA: "4", OptionB: "5", OptionC: "6", OptionD: "22", CorrectAnswer: models.OptionA, DefaultMarks: 4},
		{Text: "Capital of France", OptionA: "Rome", OptionB: "Paris", OptionC: "Madrid", OptionD: "Berlin", CorrectAnswer: models.OptionB, DefaultMarks: 6},
	} {
		require.NoError(t, repo.Question().Create(ctx, q))
		ts.q = append(ts.q, q.ID)
	}

	for _, e := range []*models.StudentEnrollment{
		{StudentID: "s1", SessionID: "2026-S1", ClassID: "10", SectionID: "A"},
		{StudentID: "s2", SessionID: "2026-S1", ClassID: "10", SectionID: "B"},
	} {
		require.NoError(t, repo.Directory().UpsertEnrollment(ctx, e))
	}
	require.NoError(t, repo.Directory().AssignTeacher(ctx, &models.TeacherAssignment{TeacherID: "t1", ClassID: "10", SectionID: "A"}))

	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// setupExam creates, fills, rosters and publishes an exam through the API as teacher t1.
func (ts *testServer) setupExam(t *testing.T) uint {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/exams", "teacher:t1", map[string]interface{}{
		"title":            "Physics",
		"subject_id":       "phys",
		"session_id":       "2026-S1",
		"duration_minutes": 20,
		"passing_marks":    5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	exam := decode[models.Exam](t, rec)

	path := fmt.Sprintf("/api/v1/exams/%d", exam.ID)
	rec = ts.do(t, http.MethodPut, path+"/questions", "teacher:t1", map[string]interface{}{
		"questions": []map[string]interface{}{
			{"question_id": ts.q[0], "display_order": 1},
			{"question_id": ts.q[1], "display_order": 2},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, path+"/roster", "teacher:t1", map[string]interface{}{
		"student_ids": []string{"s1", "s2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, path+"/publish", "teacher:t1", map[string]interface{}{"is_published": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return exam.ID
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"no token", http.MethodPost, "/api/v1/exams/1/start", "", http.StatusUnauthorized},
		{"bad token", http.MethodPost, "/api/v1/exams/1/start", "nobody", http.StatusUnauthorized},
		{"teacher cannot start", http.MethodPost, "/api/v1/exams/1/start", "teacher:t1", http.StatusForbidden},
		{"student cannot list results", http.MethodGet, "/api/v1/exams/1/results", "student:s1", http.StatusForbidden},
		{"teacher cannot publish results", http.MethodPut, "/api/v1/exams/1/publish-results", "teacher:t1", http.StatusForbidden},
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestAttemptFlow(t *testing.T) {
	ts := newTestServer(t)
	examID := ts.setupExam(t)
	startPath := fmt.Sprintf("/api/v1/exams/%d/start", examID)

	rec := ts.do(t, http.MethodPost, startPath, "student:s1", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "correct_answer")
	started := decode[models.StartAttemptResponse](t, rec)
	assert.Equal(t, 20*60, started.RemainingSeconds)
	assert.Equal(t, 10, started.Exam.TotalMarks)

	rec = ts.do(t, http.MethodPost, startPath, "student:s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.StartAttemptResponse](t, rec).Resumed)

	attemptPath := fmt.Sprintf("/api/v1/attempts/%d", started.AttemptID)
	rec = ts.do(t, http.MethodPost, attemptPath+"/answers", "student:s1", map[string]interface{}{
		"question_id": ts.q[0], "selected_answer": "A",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = ts.do(t, http.MethodPost, attemptPath+"/answers", "student:s1", map[string]interface{}{
		"question_id": ts.q[1], "selected_answer": "Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, attemptPath, "student:s2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.clock.Advance(7 * time.Minute)
	rec = ts.do(t, http.MethodPost, attemptPath+"/heartbeat", "student:s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.AttemptStatusResponse](t, rec)
	assert.Equal(t, 13*60, status.RemainingSeconds)
	assert.Equal(t, 1, status.AnsweredCount)

	rec = ts.do(t, http.MethodPost, attemptPath+"/submit", "student:s1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[models.AttemptSummary](t, rec)
	assert.Equal(t, models.AttemptSubmitted, summary.Status)
	assert.Equal(t, 4, summary.ObtainedMarks)
	assert.Equal(t, 7, summary.TimeTakenMinutes)

	rec = ts.do(t, http.MethodPost, attemptPath+"/submit", "student:s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, summary.ObtainedMarks, decode[models.AttemptSummary](t, rec).ObtainedMarks)

	rec = ts.do(t, http.MethodPost, attemptPath+"/answers", "student:s1", map[string]interface{}{
		"question_id": ts.q[1], "selected_answer": "B",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, startPath, "student:s1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAttemptDeadline(t *testing.T) {
	ts := newTestServer(t)
	examID := ts.setupExam(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/exams/%d/start", examID), "student:s2", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	started := decode[models.StartAttemptResponse](t, rec)
	attemptPath := fmt.Sprintf("/api/v1/attempts/%d", started.AttemptID)

	ts.clock.Advance(21 * time.Minute)
	rec = ts.do(t, http.MethodPost, attemptPath+"/answers", "student:s2", map[string]interface{}{
		"question_id": ts.q[0], "selected_answer": "A",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, attemptPath, "student:s2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AttemptSubmitted, decode[models.AttemptStatusResponse](t, rec).Status)
}

func TestTerminateAttempt(t *testing.T) {
	ts := newTestServer(t)
	examID := ts.setupExam(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/exams/%d/start", examID), "student:s1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	started := decode[models.StartAttemptResponse](t, rec)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/attempts/%d/terminate", started.AttemptID), "student:s1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.AttemptTerminated, decode[models.AttemptSummary](t, rec).Status)
}

func TestResultsFlow(t *testing.T) {
	ts := newTestServer(t)
	examID := ts.setupExam(t)
	examPath := fmt.Sprintf("/api/v1/exams/%d", examID)

	for _, sit := range []struct {
		student string
		answers map[uint]string
	}{
		{"s1", map[uint]string{ts.q[0]: "A", ts.q[1]: "B"}},
		{"s2", map[uint]string{ts.q[0]: "A"}},
	} {
		token := "student:" + sit.student
		rec := ts.do(t, http.MethodPost, examPath+"/start", token, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		attemptPath := fmt.Sprintf("/api/v1/attempts/%d", decode[models.StartAttemptResponse](t, rec).AttemptID)
		for q, a := range sit.answers {
			rec = ts.do(t, http.MethodPost, attemptPath+"/answers", token, map[string]interface{}{"question_id": q, "selected_answer": a})
			require.Equal(t, http.StatusOK, rec.Code)
		}
		ts.clock.Advance(time.Minute)
		rec = ts.do(t, http.MethodPost, attemptPath+"/submit", token, map[string]string{"cause": "manual"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := ts.do(t, http.MethodGet, examPath+"/my-result", "student:s1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, examPath+"/results", "admin:a1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cohort := decode[models.CohortResults](t, rec)
	require.Len(t, cohort.Ranked, 2)
	assert.Equal(t, "s1", cohort.Ranked[0].StudentID)
	assert.Equal(t, 1, cohort.Ranked[0].Rank)

	// t1 teaches 10/A only.
	rec = ts.do(t, http.MethodGet, examPath+"/results", "teacher:t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cohort = decode[models.CohortResults](t, rec)
	require.Len(t, cohort.Ranked, 1)
	assert.Equal(t, "s1", cohort.Ranked[0].StudentID)

	rec = ts.do(t, http.MethodGet, examPath+"/results?section_id=A", "admin:a1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, examPath+"/results/s2", "teacher:t1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, examPath+"/results/s2", "admin:a1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[models.ResultDetail](t, rec).ObtainedMarks)

	rec = ts.do(t, http.MethodGet, examPath+"/results/export", "admin:a1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := wb.GetRows("Results")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	require.NoError(t, wb.Close())

	rec = ts.do(t, http.MethodPut, examPath+"/publish-results", "admin:a1", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, examPath+"/publish-results", "admin:a1", map[string]interface{}{"is_published": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.PublishResultsResponse](t, rec).Changed)

	rec = ts.do(t, http.MethodGet, examPath+"/my-result", "student:s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[models.ResultDetail](t, rec)
	assert.Equal(t, 10, mine.ObtainedMarks)
	require.NotNil(t, mine.Rank)
	assert.Equal(t, 1, *mine.Rank)
}

func TestExamErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
	}{
		{"bad id", http.MethodGet, "/api/v1/exams/abc", "teacher:t1", nil, http.StatusBadRequest},
		{"missing exam", http.MethodGet, "/api/v1/exams/999", "teacher:t1", nil, http.StatusNotFound},
		{"start missing exam", http.MethodPost, "/api/v1/exams/999/start", "student:s1", nil, http.StatusNotFound},
		{"invalid create", http.MethodPost, "/api/v1/exams", "teacher:t1", map[string]interface{}{"title": ""}, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/v1/exams", "teacher:t1", "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/exams", "teacher:t1", map[string]interface{}{"title": ""})
	resp := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "VALIDATION_FAILED", resp.Code)
	assert.NotEmpty(t, resp.ValidationErrors)
}

func TestNotEligible(t *testing.T) {
	ts := newTestServer(t)
	examID := ts.setupExam(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/exams/%d/start", examID), "student:s9", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
