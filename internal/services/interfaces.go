package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

// ===== SERVICE INTERFACES =====

// AttemptService is the attempt state machine: in_progress -> submitted | terminated.
type AttemptService interface {
	Start(ctx context.Context, examID uint, student models.Principal) (*models.StartAttemptResponse, error)
	SaveAnswer(ctx context.Context, attemptID uint, req *models.SaveAnswerRequest, student models.Principal) error
	Submit(ctx context.Context, attemptID uint, cause models.SubmitCause, student models.Principal) (*models.AttemptSummary, error)
	GetStatus(ctx context.Context, attemptID uint, student models.Principal) (*models.AttemptStatusResponse, error)
	Heartbeat(ctx context.Context, attemptID uint, student models.Principal) (*models.AttemptStatusResponse, error)

	// ExpireOverdue force-submits up to limit overdue attempts and returns how many it finalized.
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

type ResultService interface {
	MyResult(ctx context.Context, examID uint, student models.Principal) (*models.ResultDetail, error)
	CohortResults(ctx context.Context, examID uint, filter models.CohortFilter, staff models.Principal) (*models.CohortResults, error)
	StudentResult(ctx context.Context, examID uint, studentID string, staff models.Principal) (*models.ResultDetail, error)
	PublishResults(ctx context.Context, examID uint, isPublished bool, admin models.Principal) (*models.PublishResultsResponse, error)

	// ExportCohort writes the same rows CohortResults returns as an xlsx workbook.
	ExportCohort(ctx context.Context, examID uint, filter models.CohortFilter, staff models.Principal, w io.Writer) error
}

// ExamService manages exam definitions on behalf of staff.
type ExamService interface {
	Create(ctx context.Context, req *models.ExamCreateRequest, staff models.Principal) (*models.Exam, error)
	GetByID(ctx context.Context, examID uint, staff models.Principal) (*models.ExamResponse, error)
	SetQuestions(ctx context.Context, examID uint, req *models.ExamQuestionsRequest, staff models.Principal) (*models.ExamResponse, error)
	SetRoster(ctx context.Context, examID uint, req *models.ExamRosterRequest, staff models.Principal) (*models.ExamResponse, error)
	SetPublished(ctx context.Context, examID uint, isPublished bool, staff models.Principal) (*models.ExamResponse, error)
}

// ServiceManager owns service construction and lifecycle.
type ServiceManager interface {
	Initialize(ctx context.Context) error
	Attempt() AttemptService
	Result() ResultService
	Exam() ExamService
	Sweeper() *Sweeper
	Shutdown(ctx context.Context) error
}
