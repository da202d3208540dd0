package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptTerminated AttemptStatus = "terminated"
)

// IsTerminal reports whether no further transitions are allowed.
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptSubmitted || s == AttemptTerminated
}

type SubmitCause string

const (
	CauseManual    SubmitCause = "manual"
	CauseTimeout   SubmitCause = "timeout"
	CauseViolation SubmitCause = "violation"
)

func (c SubmitCause) Valid() bool {
	switch c {
	case CauseManual, CauseTimeout, CauseViolation:
		return true
	}
	return false
}

// TerminalStatus is the status an attempt lands in when finalized for this cause.
func (c SubmitCause) TerminalStatus() AttemptStatus {
	if c == CauseViolation {
		return AttemptTerminated
	}
	return AttemptSubmitted
}

// SnapshotVersion is bumped whenever SnapshotQuestion changes shape.
const SnapshotVersion = 1

// SnapshotQuestion is the frozen copy of an exam question taken when the attempt starts.
// Scoring reads only this copy, so later edits to the exam or catalog do not move marks.
type SnapshotQuestion struct {
	QuestionID    uint         `json:"question_id"`
	Text          string       `json:"text"`
	OptionA       string       `json:"option_a"`
	OptionB       string       `json:"option_b"`
	OptionC       string       `json:"option_c,omitempty"`
	OptionD       string       `json:"option_d,omitempty"`
	OptionE       string       `json:"option_e,omitempty"`
	CorrectAnswer AnswerOption `json:"correct_answer"`
	Marks         int          `json:"marks"`
	DisplayOrder  int          `json:"display_order"`
}

func (q *SnapshotQuestion) Options() map[AnswerOption]string {
	return optionMap(q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.OptionE)
}

// Offers reports whether the option letter is available on this question.
func (q *SnapshotQuestion) Offers(opt AnswerOption) bool {
	_, ok := q.Options()[opt]
	return ok
}

type AttemptSnapshot struct {
	Version   int                `json:"version"`
	Questions []SnapshotQuestion `json:"questions"`
}

type Attempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	ExamID    uint          `json:"exam_id" gorm:"not null;uniqueIndex:idx_attempt_exam_student"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_attempt_exam_student"`
	Status    AttemptStatus `json:"status" gorm:"size:20;not null;default:in_progress;index"`

	// Timing
	StartedAt        time.Time    `json:"started_at" gorm:"not null"`
	DeadlineAt       time.Time    `json:"deadline_at" gorm:"not null;index"`
	SubmittedAt      *time.Time   `json:"submitted_at"`
	SubmitCause      *SubmitCause `json:"submit_cause" gorm:"size:20"`
	TimeTakenMinutes int          `json:"time_taken_minutes"`
	LastSeenAt       *time.Time   `json:"last_seen_at"`

	// Scoring, frozen at finalization
	ObtainedMarks   int     `json:"obtained_marks"`
	TotalMarks      int     `json:"total_marks"`
	PassingMarks    int     `json:"passing_marks"`
	Percentage      float64 `json:"percentage"`
	IsPassed        bool    `json:"is_passed"`
	CorrectCount    int     `json:"correct_count"`
	WrongCount      int     `json:"wrong_count"`
	UnansweredCount int     `json:"unanswered_count"`

	QuestionSnapshot datatypes.JSON `json:"-" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Expired reports whether the deadline has passed at now.
func (a *Attempt) Expired(now time.Time) bool {
	return now.After(a.DeadlineAt)
}

// RemainingSeconds is floored at zero.
func (a *Attempt) RemainingSeconds(now time.Time) int {
	remaining := a.DeadlineAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining / time.Second)
}

func (a *Attempt) SetSnapshot(questions []SnapshotQuestion) error {
	raw, err := json.Marshal(AttemptSnapshot{Version: SnapshotVersion, Questions: questions})
	if err != nil {
		return fmt.Errorf("failed to encode question snapshot: %w", err)
	}
	a.QuestionSnapshot = datatypes.JSON(raw)
	return nil
}

func (a *Attempt) Snapshot() ([]SnapshotQuestion, error) {
	if len(a.QuestionSnapshot) == 0 {
		return nil, nil
	}
	var snap AttemptSnapshot
	if err := json.Unmarshal(a.QuestionSnapshot, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode question snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported question snapshot version %d", snap.Version)
	}
	return snap.Questions, nil
}

// Answer holds a student's current selection for one question of an attempt.
// At most one row exists per (attempt, question); saving again overwrites it.
type Answer struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	AttemptID      uint         `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID     uint         `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	SelectedAnswer AnswerOption `json:"selected_answer" gorm:"size:1"`

	// Filled in at finalization
	IsCorrect     bool `json:"is_correct"`
	MarksObtained int  `json:"marks_obtained"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Answer) TableName() string {
	return "answers"
}
