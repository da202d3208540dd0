package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-engine/internal/cache"
	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// ===== BASIC CRUD OPERATIONS =====

func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	if err := e.db.WithContext(ctx).Omit("Questions").Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

// GetByID always reads the row. Publication flags must never be served stale.
func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, wrapErr(err, "exam", id, "get")
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	result := e.db.WithContext(ctx).Model(exam).Omit("Questions").
		Select("title", "subject_id", "session_id", "exam_date", "time_from", "time_to",
			"duration_minutes", "total_marks", "passing_marks", "instructions").
		Updates(exam)
	if result.Error != nil {
		return fmt.Errorf("failed to update exam: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.NewNotFoundError("exam", exam.ID)
	}
	return nil
}

// ===== QUESTION LIST =====

func (e *ExamPostgreSQL) GetQuestions(ctx context.Context, examID uint) ([]models.ExamQuestion, error) {
	var questions []models.ExamQuestion

	err := e.cacheManager.Exam.VersionedCacheOrExecute(ctx, cache.ExamQuestionsVersionKey(examID), cache.ExamQuestionsKey(examID), &questions, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var rows []models.ExamQuestion
		if err := e.db.WithContext(ctx).
			Preload("Question").
			Where("exam_id = ?", examID).
			Order("display_order ASC, id ASC").
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get exam questions: %w", err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	return questions, nil
}

func (e *ExamPostgreSQL) ReplaceQuestions(ctx context.Context, examID uint, questions []models.ExamQuestion) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", examID).Delete(&models.ExamQuestion{}).Error; err != nil {
			return fmt.Errorf("failed to clear exam questions: %w", err)
		}
		if len(questions) == 0 {
			return nil
		}
		for i := range questions {
			questions[i].ID = 0
			questions[i].ExamID = examID
		}
		if err := tx.Omit("Question").Create(&questions).Error; err != nil {
			return fmt.Errorf("failed to insert exam questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateExamCache(ctx, e.cacheManager, examID)
	return nil
}

// ===== PUBLICATION GATES =====

func (e *ExamPostgreSQL) SetPublished(ctx context.Context, id uint, published bool) error {
	result := e.db.WithContext(ctx).Model(&models.Exam{}).Where("id = ?", id).Update("is_published", published)
	if result.Error != nil {
		return fmt.Errorf("failed to update exam publication: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.NewNotFoundError("exam", id)
	}
	return nil
}

func (e *ExamPostgreSQL) SetResultPublished(ctx context.Context, id uint, published bool) (bool, error) {
	result := e.db.WithContext(ctx).Model(&models.Exam{}).
		Where("id = ? AND is_result_published <> ?", id, published).
		Update("is_result_published", published)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update result publication: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Nothing changed: either the flag already had this value or the exam does not exist.
	var count int64
	if err := e.db.WithContext(ctx).Model(&models.Exam{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check exam: %w", err)
	}
	if count == 0 {
		return false, repositories.NewNotFoundError("exam", id)
	}
	return false, nil
}
