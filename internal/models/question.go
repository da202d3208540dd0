package models

import (
	"strings"
	"time"
)

// AnswerOption is one of the letters A..E. The empty value means "no answer".
type AnswerOption string

const (
	OptionNone AnswerOption = ""
	OptionA    AnswerOption = "A"
	OptionB    AnswerOption = "B"
	OptionC    AnswerOption = "C"
	OptionD    AnswerOption = "D"
	OptionE    AnswerOption = "E"
)

var AllAnswerOptions = []AnswerOption{OptionA, OptionB, OptionC, OptionD, OptionE}

// ParseAnswerOption normalizes user input ("c", " C ") and reports whether it is a known letter.
func ParseAnswerOption(s string) (AnswerOption, bool) {
	opt := AnswerOption(strings.ToUpper(strings.TrimSpace(s)))
	if opt == OptionNone {
		return OptionNone, true
	}
	for _, o := range AllAnswerOptions {
		if o == opt {
			return opt, true
		}
	}
	return OptionNone, false
}

// Question is a catalog entry. Exams reference it through ExamQuestion.
type Question struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Text    string `json:"text" gorm:"type:text;not null"`
	OptionA string `json:"option_a" gorm:"type:text;not null"`
	OptionB string `json:"option_b" gorm:"type:text;not null"`
	OptionC string `json:"option_c" gorm:"type:text"`
	OptionD string `json:"option_d" gorm:"type:text"`
	OptionE string `json:"option_e" gorm:"type:text"`

	CorrectAnswer AnswerOption `json:"correct_answer" gorm:"size:1;not null"`
	DefaultMarks  int          `json:"default_marks" gorm:"not null;default:1"`

	SubjectID *string   `json:"subject_id" gorm:"size:100;index"`
	CreatedBy string    `json:"created_by" gorm:"size:255;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// Options returns the option texts keyed by letter, skipping letters that are not offered.
func (q *Question) Options() map[AnswerOption]string {
	return optionMap(q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.OptionE)
}

func optionMap(a, b, c, d, e string) map[AnswerOption]string {
	out := make(map[AnswerOption]string, 5)
	for i, text := range []string{a, b, c, d, e} {
		if text != "" {
			out[AllAnswerOptions[i]] = text
		}
	}
	return out
}
