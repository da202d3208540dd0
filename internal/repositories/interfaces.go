package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

// ExamRepository stores exam definitions and their question lists.
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	Update(ctx context.Context, exam *models.Exam) error

	// GetQuestions returns the exam's questions with catalog content, ordered by display order then id.
	GetQuestions(ctx context.Context, examID uint) ([]models.ExamQuestion, error)
	ReplaceQuestions(ctx context.Context, examID uint, questions []models.ExamQuestion) error

	SetPublished(ctx context.Context, id uint, published bool) error
	// SetResultPublished reports whether the stored flag changed.
	SetResultPublished(ctx context.Context, id uint, published bool) (bool, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
}

// DirectoryRepository answers who may sit an exam and who may see whose results.
type DirectoryRepository interface {
	ReplaceRoster(ctx context.Context, examID uint, studentIDs []string) error
	IsOnRoster(ctx context.Context, examID uint, studentID string) (bool, error)
	RosterSize(ctx context.Context, examID uint) (int, error)

	UpsertEnrollment(ctx context.Context, enrollment *models.StudentEnrollment) error
	GetEnrollment(ctx context.Context, studentID, sessionID string) (*models.StudentEnrollment, error)
	ListEnrollments(ctx context.Context, sessionID string, studentIDs []string) ([]*models.StudentEnrollment, error)

	AssignTeacher(ctx context.Context, assignment *models.TeacherAssignment) error
	ListTeacherAssignments(ctx context.Context, teacherID string) ([]*models.TeacherAssignment, error)
}

type AttemptRepository interface {
	// CreateIfAbsent inserts the attempt unless one already exists for (exam, student).
	// It returns the stored attempt and whether this call created it.
	CreateIfAbsent(ctx context.Context, attempt *models.Attempt) (*models.Attempt, bool, error)

	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	// GetByIDForUpdate locks the row for the rest of the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error)
	GetByExamAndStudent(ctx context.Context, examID uint, studentID string) (*models.Attempt, error)

	// Finalize writes the scored attempt and its answers only if the attempt is still in progress.
	// It reports whether this call performed the transition.
	Finalize(ctx context.Context, attempt *models.Attempt, answers []*models.Answer) (bool, error)

	Touch(ctx context.Context, id uint, seenAt time.Time) error

	// ListFinalized returns submitted and terminated attempts ordered by
	// obtained marks desc, submitted_at asc, id asc.
	ListFinalized(ctx context.Context, examID uint) ([]*models.Attempt, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error)
}

type AnswerRepository interface {
	// Upsert stores the selection for (attempt, question), replacing any previous one.
	// It fails with ErrAttemptClosed once the attempt has left in_progress.
	Upsert(ctx context.Context, answer *models.Answer) error
	ListByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error)
}
