package models

import (
	"time"
)

// ===== EXAM DEFINITION DTOS =====

type ExamCreateRequest struct {
	Title           string  `json:"title" validate:"required,min=1,max=200"`
	SubjectID       string  `json:"subject_id" validate:"required,max=100"`
	SessionID       string  `json:"session_id" validate:"required,max=100"`
	ExamDate        *string `json:"exam_date" validate:"omitempty,datetime=2006-01-02"`
	TimeFrom        *string `json:"time_from" validate:"omitempty,datetime=15:04"`
	TimeTo          *string `json:"time_to" validate:"omitempty,datetime=15:04"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,min=1,max=1440"`
	TotalMarks      *int    `json:"total_marks" validate:"omitempty,min=0"`
	PassingMarks    int     `json:"passing_marks" validate:"min=0"`
	Instructions    *string `json:"instructions" validate:"omitempty,max=5000"`
}

type ExamQuestionRequest struct {
	QuestionID   uint `json:"question_id" validate:"required"`
	Marks        *int `json:"marks" validate:"omitempty,min=0,max=1000"`
	DisplayOrder int  `json:"display_order" validate:"min=0"`
}

type ExamQuestionsRequest struct {
	Questions []ExamQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type ExamRosterRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,dive,required,max=255"`
}

type PublishRequest struct {
	IsPublished *bool `json:"is_published" validate:"required"`
}

type ExamResponse struct {
	*Exam
	QuestionCount int `json:"question_count"`
	RosterSize    int `json:"roster_size"`
}

// ===== ATTEMPT DTOS =====

type SaveAnswerRequest struct {
	QuestionID     uint   `json:"question_id" validate:"required"`
	SelectedAnswer string `json:"selected_answer" validate:"omitempty,answer_option"`
}

type SubmitAttemptRequest struct {
	Cause SubmitCause `json:"cause" validate:"omitempty,oneof=manual timeout violation"`
}

// ExamOverview is the student-facing view of an exam's metadata.
type ExamOverview struct {
	ID              uint    `json:"id"`
	Title           string  `json:"title"`
	SubjectID       string  `json:"subject_id"`
	DurationMinutes int     `json:"duration_minutes"`
	TotalMarks      int     `json:"total_marks"`
	PassingMarks    int     `json:"passing_marks"`
	Instructions    *string `json:"instructions,omitempty"`
}

// AttemptQuestion is a question as served to the student. It never carries the correct answer.
type AttemptQuestion struct {
	QuestionID     uint                    `json:"question_id"`
	Text           string                  `json:"text"`
	Options        map[AnswerOption]string `json:"options"`
	Marks          int                     `json:"marks"`
	DisplayOrder   int                     `json:"display_order"`
	SelectedAnswer AnswerOption            `json:"selected_answer,omitempty"`
}

type StartAttemptResponse struct {
	AttemptID        uint              `json:"attempt_id"`
	Resumed          bool              `json:"resumed"`
	Exam             ExamOverview      `json:"exam"`
	Questions        []AttemptQuestion `json:"questions"`
	StartedAt        time.Time         `json:"started_at"`
	DeadlineAt       time.Time         `json:"deadline_at"`
	RemainingSeconds int               `json:"remaining_seconds"`
}

type AttemptStatusResponse struct {
	AttemptID        uint          `json:"attempt_id"`
	ExamID           uint          `json:"exam_id"`
	Status           AttemptStatus `json:"status"`
	StartedAt        time.Time     `json:"started_at"`
	DeadlineAt       time.Time     `json:"deadline_at"`
	RemainingSeconds int           `json:"remaining_seconds"`
	AnsweredCount    int           `json:"answered_count"`
	QuestionCount    int           `json:"question_count"`
}

// AttemptSummary is the scored outcome of a finalized attempt.
type AttemptSummary struct {
	AttemptID        uint          `json:"attempt_id"`
	ExamID           uint          `json:"exam_id"`
	StudentID        string        `json:"student_id"`
	Status           AttemptStatus `json:"status"`
	SubmitCause      *SubmitCause  `json:"submit_cause,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	SubmittedAt      *time.Time    `json:"submitted_at,omitempty"`
	TimeTakenMinutes int           `json:"time_taken_minutes"`
	ObtainedMarks    int           `json:"obtained_marks"`
	TotalMarks       int           `json:"total_marks"`
	PassingMarks     int           `json:"passing_marks"`
	Percentage       float64       `json:"percentage"`
	IsPassed         bool          `json:"is_passed"`
	CorrectCount     int           `json:"correct_count"`
	WrongCount       int           `json:"wrong_count"`
	UnansweredCount  int           `json:"unanswered_count"`
}

func NewAttemptSummary(a *Attempt) *AttemptSummary {
	return &AttemptSummary{
		AttemptID:        a.ID,
		ExamID:           a.ExamID,
		StudentID:        a.StudentID,
		Status:           a.Status,
		SubmitCause:      a.SubmitCause,
		StartedAt:        a.StartedAt,
		SubmittedAt:      a.SubmittedAt,
		TimeTakenMinutes: a.TimeTakenMinutes,
		ObtainedMarks:    a.ObtainedMarks,
		TotalMarks:       a.TotalMarks,
		PassingMarks:     a.PassingMarks,
		Percentage:       a.Percentage,
		IsPassed:         a.IsPassed,
		CorrectCount:     a.CorrectCount,
		WrongCount:       a.WrongCount,
		UnansweredCount:  a.UnansweredCount,
	}
}

// ===== RESULT DTOS =====

type QuestionBreakdown struct {
	QuestionID     uint                    `json:"question_id"`
	Text           string                  `json:"text"`
	Options        map[AnswerOption]string `json:"options"`
	DisplayOrder   int                     `json:"display_order"`
	Marks          int                     `json:"marks"`
	CorrectAnswer  AnswerOption            `json:"correct_answer"`
	SelectedAnswer AnswerOption            `json:"selected_answer,omitempty"`
	Answered       bool                    `json:"answered"`
	IsCorrect      bool                    `json:"is_correct"`
	MarksObtained  int                     `json:"marks_obtained"`
}

type ResultDetail struct {
	AttemptSummary
	ExamTitle string              `json:"exam_title"`
	Rank      *int                `json:"rank,omitempty"`
	Questions []QuestionBreakdown `json:"questions"`
}

type CohortFilter struct {
	ClassID   string `form:"class_id" json:"class_id,omitempty"`
	SectionID string `form:"section_id" json:"section_id,omitempty"`
}

type CohortResultRow struct {
	Rank             int           `json:"rank,omitempty"`
	AttemptID        uint          `json:"attempt_id"`
	StudentID        string        `json:"student_id"`
	StudentName      string        `json:"student_name,omitempty"`
	ClassID          string        `json:"class_id,omitempty"`
	SectionID        string        `json:"section_id,omitempty"`
	Status           AttemptStatus `json:"status"`
	ObtainedMarks    int           `json:"obtained_marks"`
	TotalMarks       int           `json:"total_marks"`
	Percentage       float64       `json:"percentage"`
	IsPassed         bool          `json:"is_passed"`
	TimeTakenMinutes int           `json:"time_taken_minutes"`
	SubmittedAt      *time.Time    `json:"submitted_at,omitempty"`
}

type CohortResults struct {
	ExamID            uint              `json:"exam_id"`
	ExamTitle         string            `json:"exam_title"`
	IsResultPublished bool              `json:"is_result_published"`
	Filter            CohortFilter      `json:"filter"`
	Ranked            []CohortResultRow `json:"ranked"`
	Terminated        []CohortResultRow `json:"terminated"`
	Stats             CohortStats       `json:"stats"`
}

type CohortStats struct {
	Count          int     `json:"count"`
	PassedCount    int     `json:"passed_count"`
	AverageMarks   float64 `json:"average_marks"`
	HighestMarks   int     `json:"highest_marks"`
	LowestMarks    int     `json:"lowest_marks"`
	PassPercentage float64 `json:"pass_percentage"`
}

type PublishResultsResponse struct {
	ExamID            uint `json:"exam_id"`
	IsResultPublished bool `json:"is_result_published"`
	Changed           bool `json:"changed"`
}

// ===== COMMON RESPONSES =====

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
	Code    string `json:"code"`
}

type ErrorResponse struct {
	Error            string                    `json:"error"`
	Message          string                    `json:"message"`
	Code             string                    `json:"code"`
	Details          interface{}               `json:"details,omitempty"`
	Timestamp        time.Time                 `json:"timestamp"`
	Path             string                    `json:"path"`
	ValidationErrors []ValidationErrorResponse `json:"validation_errors,omitempty"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Time     time.Time         `json:"time"`
	Version  string            `json:"version,omitempty"`
	Database string            `json:"database"`
}
