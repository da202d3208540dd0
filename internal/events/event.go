package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

const (
	EventSource  = "exam-engine"
	EventVersion = "1.0"
)

const (
	TypeAttemptFinalized = "attempt.finalized"
	TypeResultsPublished = "exam.results_published"
)

// Event is the envelope for everything the engine emits.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Key       string      `json:"key,omitempty"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType, key string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Key:       key,
		Data:      data,
	}
}

type AttemptFinalizedData struct {
	AttemptID     uint                 `json:"attempt_id"`
	ExamID        uint                 `json:"exam_id"`
	StudentID     string               `json:"student_id"`
	Status        models.AttemptStatus `json:"status"`
	Cause         models.SubmitCause   `json:"cause"`
	ObtainedMarks int                  `json:"obtained_marks"`
	TotalMarks    int                  `json:"total_marks"`
	Percentage    float64              `json:"percentage"`
	IsPassed      bool                 `json:"is_passed"`
	SubmittedAt   time.Time            `json:"submitted_at"`
}

type ResultsPublishedData struct {
	ExamID      uint      `json:"exam_id"`
	PublishedBy string    `json:"published_by"`
	PublishedAt time.Time `json:"published_at"`
}
