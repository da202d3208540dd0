package models

import (
	"time"

	"gorm.io/datatypes"
)

type Exam struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Title     string `json:"title" gorm:"not null;size:200;index"`
	SubjectID string `json:"subject_id" gorm:"not null;size:100;index"`
	SessionID string `json:"session_id" gorm:"not null;size:100;index"`

	// Scheduling. Missing bounds leave that side of the window open.
	ExamDate        *time.Time      `json:"exam_date" gorm:"type:date"`
	TimeFrom        *datatypes.Time `json:"time_from"`
	TimeTo          *datatypes.Time `json:"time_to"`
	DurationMinutes int             `json:"duration_minutes" gorm:"not null"`

	// Marks
	TotalMarks   int `json:"total_marks" gorm:"not null;default:0"`
	PassingMarks int `json:"passing_marks" gorm:"not null;default:0"`

	Instructions *string `json:"instructions" gorm:"type:text"`

	// Gates
	IsPublished       bool `json:"is_published" gorm:"not null;default:false;index"`
	IsResultPublished bool `json:"is_result_published" gorm:"not null;default:false"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []ExamQuestion `json:"questions,omitempty" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
}

func (Exam) TableName() string {
	return "exams"
}

// Duration returns the per-attempt time limit.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// ExamQuestion links a catalog question into an exam with exam-specific marks.
type ExamQuestion struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	ExamID       uint `json:"exam_id" gorm:"not null;uniqueIndex:idx_exam_question"`
	QuestionID   uint `json:"question_id" gorm:"not null;uniqueIndex:idx_exam_question"`
	Marks        int  `json:"marks" gorm:"not null;default:0"`
	DisplayOrder int  `json:"display_order" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

// ExamRosterEntry marks a student as eligible to sit an exam.
type ExamRosterEntry struct {
	ExamID    uint      `json:"exam_id" gorm:"primaryKey"`
	StudentID string    `json:"student_id" gorm:"primaryKey;size:255"`
	CreatedAt time.Time `json:"created_at"`
}

func (ExamRosterEntry) TableName() string {
	return "exam_roster"
}
