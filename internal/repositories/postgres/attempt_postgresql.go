package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

// CreateIfAbsent relies on the (exam_id, student_id) unique index. A losing concurrent
// insert becomes a no-op and the winner's row is read back.
func (a *AttemptPostgreSQL) CreateIfAbsent(ctx context.Context, attempt *models.Attempt) (*models.Attempt, bool, error) {
	result := insertAttemptIfAbsent(a.db.WithContext(ctx), attempt)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to create attempt: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return attempt, true, nil
	}

	existing, err := a.GetByExamAndStudent(ctx, attempt.ExamID, attempt.StudentID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, wrapErr(err, "attempt", id, "get")
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := lockAttempt(a.db.WithContext(ctx), &attempt, id, "UPDATE").Error; err != nil {
		return nil, wrapErr(err, "attempt", id, "lock")
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByExamAndStudent(ctx context.Context, examID uint, studentID string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&attempt).Error; err != nil {
		return nil, wrapErr(err, "attempt", fmt.Sprintf("exam %d student %s", examID, studentID), "get")
	}
	return &attempt, nil
}

// Finalize is a compare-and-set on status. Only the caller that moves the row out of
// in_progress writes scores; everyone else gets false and must read the winner's row.
func (a *AttemptPostgreSQL) Finalize(ctx context.Context, attempt *models.Attempt, answers []*models.Answer) (bool, error) {
	applied := false

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := casFinalizeAttempt(tx, attempt)
		if result.Error != nil {
			return fmt.Errorf("failed to finalize attempt: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		applied = true

		for _, answer := range answers {
			if err := gradeAnswer(tx, attempt.ID, answer).Error; err != nil {
				return fmt.Errorf("failed to grade answer for question %d: %w", answer.QuestionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

func (a *AttemptPostgreSQL) Touch(ctx context.Context, id uint, seenAt time.Time) error {
	result := a.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Update("last_seen_at", seenAt)
	if result.Error != nil {
		return fmt.Errorf("failed to touch attempt: %w", result.Error)
	}
	return nil
}

func (a *AttemptPostgreSQL) ListFinalized(ctx context.Context, examID uint) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	if err := a.db.WithContext(ctx).
		Where("exam_id = ? AND status IN ?", examID, []models.AttemptStatus{models.AttemptSubmitted, models.AttemptTerminated}).
		Order("obtained_marks DESC, submitted_at ASC, id ASC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list finalized attempts: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	query := a.db.WithContext(ctx).
		Where("status = ? AND deadline_at < ?", models.AttemptInProgress, now).
		Order("deadline_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list overdue attempts: %w", err)
	}
	return attempts, nil
}

// ===== ANSWERS =====

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// Upsert takes a share lock on the attempt row so it serializes against Finalize,
// which holds the row exclusively while it reads answers and writes scores.
func (r *AnswerPostgreSQL) Upsert(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attempt models.Attempt
		if err := lockAttempt(tx.Select("id", "status"), &attempt, answer.AttemptID, "SHARE").Error; err != nil {
			return wrapErr(err, "attempt", answer.AttemptID, "lock")
		}
		if attempt.Status != models.AttemptInProgress {
			return repositories.ErrAttemptClosed
		}

		if err := upsertAnswer(tx, answer).Error; err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}
		return nil
	})
}

func (r *AnswerPostgreSQL) ListByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error) {
	var answers []*models.Answer
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, nil
}

// ===== STATEMENTS =====

func insertAttemptIfAbsent(tx *gorm.DB, attempt *models.Attempt) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exam_id"}, {Name: "student_id"}},
		DoNothing: true,
	}).Create(attempt)
}

// lockAttempt reads one attempt row under FOR UPDATE or FOR SHARE.
func lockAttempt(tx *gorm.DB, dest *models.Attempt, id uint, strength string) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: strength}).First(dest, id)
}

// casFinalizeAttempt only matches a row that is still in progress.
func casFinalizeAttempt(tx *gorm.DB, attempt *models.Attempt) *gorm.DB {
	return tx.Model(&models.Attempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":             attempt.Status,
			"submitted_at":       attempt.SubmittedAt,
			"submit_cause":       attempt.SubmitCause,
			"time_taken_minutes": attempt.TimeTakenMinutes,
			"obtained_marks":     attempt.ObtainedMarks,
			"total_marks":        attempt.TotalMarks,
			"passing_marks":      attempt.PassingMarks,
			"percentage":         attempt.Percentage,
			"is_passed":          attempt.IsPassed,
			"correct_count":      attempt.CorrectCount,
			"wrong_count":        attempt.WrongCount,
			"unanswered_count":   attempt.UnansweredCount,
		})
}

func gradeAnswer(tx *gorm.DB, attemptID uint, answer *models.Answer) *gorm.DB {
	return tx.Model(&models.Answer{}).
		Where("attempt_id = ? AND question_id = ?", attemptID, answer.QuestionID).
		Updates(map[string]interface{}{
			"is_correct":     answer.IsCorrect,
			"marks_obtained": answer.MarksObtained,
		})
}

func upsertAnswer(tx *gorm.DB, answer *models.Answer) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_answer", "updated_at"}),
	}).Create(answer)
}
