package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

func TestExamWindow_Contains(t *testing.T) {
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	nine := datatypes.NewTime(9, 0, 0, 0)
	ten := datatypes.NewTime(10, 0, 0, 0)

	tests := []struct {
		name string
		exam models.Exam
		now  time.Time
		want bool
	}{
		{name: "no schedule", exam: models.Exam{}, now: day.AddDate(1, 0, 0), want: true},
		{name: "date only, same day", exam: models.Exam{ExamDate: &day}, now: day.Add(23 * time.Hour), want: true},
		{name: "date only, next day", exam: models.Exam{ExamDate: &day}, now: day.AddDate(0, 0, 1), want: false},
		{name: "date only, day before", exam: models.Exam{ExamDate: &day}, now: day.Add(-time.Second), want: false},
		{name: "opens inclusive", exam: models.Exam{ExamDate: &day, TimeFrom: &nine, TimeTo: &ten}, now: day.Add(9 * time.Hour), want: true},
		{name: "closes exclusive", exam: models.Exam{ExamDate: &day, TimeFrom: &nine, TimeTo: &ten}, now: day.Add(10 * time.Hour), want: false},
		{name: "before opening", exam: models.Exam{ExamDate: &day, TimeFrom: &nine}, now: day.Add(8 * time.Hour), want: false},
		{name: "daily bounds without date", exam: models.Exam{TimeFrom: &nine, TimeTo: &ten}, now: day.AddDate(0, 0, 7).Add(9*time.Hour + 30*time.Minute), want: true},
		{name: "daily bounds without date, late", exam: models.Exam{TimeFrom: &nine, TimeTo: &ten}, now: day.AddDate(0, 0, 7).Add(11 * time.Hour), want: false},
		{name: "only closing time", exam: models.Exam{TimeTo: &ten}, now: day.Add(time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WindowFor(&tt.exam, tt.now, time.UTC).Contains(tt.now))
		})
	}
}
