// Package grading scores a frozen question snapshot against a student's selections.
// It has no I/O and no clock, so it can be called inside a transaction or replayed at any time.
package grading

import (
	"math"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

type Input struct {
	Questions []models.SnapshotQuestion
	// Selections maps question id to the selected option. Missing or empty entries are unanswered.
	Selections   map[uint]models.AnswerOption
	TotalMarks   int
	PassingMarks int
}

type QuestionResult struct {
	QuestionID     uint
	SelectedAnswer models.AnswerOption
	Answered       bool
	IsCorrect      bool
	Marks          int
	MarksObtained  int
}

type Result struct {
	Questions       []QuestionResult
	ObtainedMarks   int
	TotalMarks      int
	Percentage      float64
	IsPassed        bool
	CorrectCount    int
	WrongCount      int
	UnansweredCount int
}

// Score awards a question's marks when the selection equals the correct option and zero otherwise.
// Percentage is 100*obtained/total unrounded, and 0 when total marks is 0.
func Score(in Input) Result {
	res := Result{
		Questions:  make([]QuestionResult, 0, len(in.Questions)),
		TotalMarks: in.TotalMarks,
	}

	for _, q := range in.Questions {
		qr := QuestionResult{QuestionID: q.QuestionID, Marks: q.Marks}
		selected := in.Selections[q.QuestionID]

		switch {
		case selected == models.OptionNone:
			res.UnansweredCount++
		case selected == q.CorrectAnswer:
			qr.Answered = true
			qr.IsCorrect = true
			qr.MarksObtained = q.Marks
			res.CorrectCount++
		default:
			qr.Answered = true
			res.WrongCount++
		}
		qr.SelectedAnswer = selected

		res.ObtainedMarks += qr.MarksObtained
		res.Questions = append(res.Questions, qr)
	}

	res.Percentage = Percentage(res.ObtainedMarks, in.TotalMarks)
	res.IsPassed = res.ObtainedMarks >= in.PassingMarks
	return res
}

func Percentage(obtained, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(obtained) * 100 / float64(total)
}

// RoundPercentage is for presentation only. Stored percentages keep full precision.
func RoundPercentage(p float64) float64 {
	return math.Round(p*100) / 100
}

// SumMarks is the default total when an exam does not set one explicitly.
func SumMarks(questions []models.SnapshotQuestion) int {
	total := 0
	for _, q := range questions {
		total += q.Marks
	}
	return total
}
