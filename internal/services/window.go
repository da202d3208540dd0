package services

import (
	"time"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

// ExamWindow is the half-open interval [Opens, Closes) in which attempts may start.
// A nil bound is open on that side.
type ExamWindow struct {
	Opens  *time.Time
	Closes *time.Time
}

// WindowFor resolves the exam's scheduling fields against now. Without an exam date,
// time bounds apply to the day containing now.
func WindowFor(exam *models.Exam, now time.Time, loc *time.Location) ExamWindow {
	if exam.ExamDate == nil && exam.TimeFrom == nil && exam.TimeTo == nil {
		return ExamWindow{}
	}

	var y int
	var m time.Month
	var d int
	if exam.ExamDate != nil {
		y, m, d = exam.ExamDate.Date()
	} else {
		y, m, d = now.In(loc).Date()
	}
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)

	opens := dayStart
	if exam.TimeFrom != nil {
		opens = dayStart.Add(time.Duration(*exam.TimeFrom))
	}
	closes := dayStart.AddDate(0, 0, 1)
	if exam.TimeTo != nil {
		closes = dayStart.Add(time.Duration(*exam.TimeTo))
	}

	w := ExamWindow{}
	if exam.ExamDate != nil || exam.TimeFrom != nil {
		w.Opens = &opens
	}
	if exam.ExamDate != nil || exam.TimeTo != nil {
		w.Closes = &closes
	}
	return w
}

func (w ExamWindow) Contains(t time.Time) bool {
	if w.Opens != nil && t.Before(*w.Opens) {
		return false
	}
	if w.Closes != nil && !t.Before(*w.Closes) {
		return false
	}
	return true
}
