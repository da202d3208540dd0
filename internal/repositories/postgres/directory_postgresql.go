package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

type DirectoryPostgreSQL struct {
	db *gorm.DB
}

func NewDirectoryPostgreSQL(db *gorm.DB) repositories.DirectoryRepository {
	return &DirectoryPostgreSQL{db: db}
}

// ===== ROSTER =====

func (d *DirectoryPostgreSQL) ReplaceRoster(ctx context.Context, examID uint, studentIDs []string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", examID).Delete(&models.ExamRosterEntry{}).Error; err != nil {
			return fmt.Errorf("failed to clear roster: %w", err)
		}
		if len(studentIDs) == 0 {
			return nil
		}

		entries := make([]models.ExamRosterEntry, 0, len(studentIDs))
		for _, id := range studentIDs {
			entries = append(entries, models.ExamRosterEntry{ExamID: examID, StudentID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(entries, 500).Error; err != nil {
			return fmt.Errorf("failed to insert roster: %w", err)
		}
		return nil
	})
}

func (d *DirectoryPostgreSQL) IsOnRoster(ctx context.Context, examID uint, studentID string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.ExamRosterEntry{}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check roster: %w", err)
	}
	return count > 0, nil
}

func (d *DirectoryPostgreSQL) RosterSize(ctx context.Context, examID uint) (int, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.ExamRosterEntry{}).
		Where("exam_id = ?", examID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count roster: %w", err)
	}
	return int(count), nil
}

// ===== ENROLLMENTS =====

func (d *DirectoryPostgreSQL) UpsertEnrollment(ctx context.Context, enrollment *models.StudentEnrollment) error {
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"class_id", "section_id"}),
	}).Create(enrollment).Error; err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}
	return nil
}

func (d *DirectoryPostgreSQL) GetEnrollment(ctx context.Context, studentID, sessionID string) (*models.StudentEnrollment, error) {
	var enrollment models.StudentEnrollment
	if err := d.db.WithContext(ctx).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		First(&enrollment).Error; err != nil {
		return nil, wrapErr(err, "enrollment", studentID, "get")
	}
	return &enrollment, nil
}

func (d *DirectoryPostgreSQL) ListEnrollments(ctx context.Context, sessionID string, studentIDs []string) ([]*models.StudentEnrollment, error) {
	if len(studentIDs) == 0 {
		return []*models.StudentEnrollment{}, nil
	}

	var enrollments []*models.StudentEnrollment
	if err := d.db.WithContext(ctx).
		Where("session_id = ? AND student_id IN ?", sessionID, studentIDs).
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

// ===== TEACHER ASSIGNMENTS =====

func (d *DirectoryPostgreSQL) AssignTeacher(ctx context.Context, assignment *models.TeacherAssignment) error {
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(assignment).Error; err != nil {
		return fmt.Errorf("failed to assign teacher: %w", err)
	}
	return nil
}

func (d *DirectoryPostgreSQL) ListTeacherAssignments(ctx context.Context, teacherID string) ([]*models.TeacherAssignment, error) {
	var assignments []*models.TeacherAssignment
	if err := d.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("class_id ASC, section_id ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list teacher assignments: %w", err)
	}
	return assignments, nil
}
