package services

import (
	"context"
	"fmt"
	"math"

	"github.com/SAP-F-2025/exam-engine/internal/grading"
	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

// ===== ACCESS SCOPE =====

// viewerScope decides which enrolled students a staff member can see.
type viewerScope struct {
	all         bool
	assignments []*models.TeacherAssignment
}

func (s *resultService) scopeFor(ctx context.Context, staff models.Principal) (viewerScope, error) {
	if staff.IsAdmin() {
		return viewerScope{all: true}, nil
	}
	assignments, err := s.repo.Directory().ListTeacherAssignments(ctx, staff.ID)
	if err != nil {
		return viewerScope{}, fmt.Errorf("failed to list teacher assignments: %w", err)
	}
	return viewerScope{assignments: assignments}, nil
}

// visible is false for unenrolled students unless the viewer sees everything.
func (v viewerScope) visible(enrollment *models.StudentEnrollment) bool {
	if v.all {
		return true
	}
	if enrollment == nil {
		return false
	}
	for _, a := range v.assignments {
		if a.ClassID == enrollment.ClassID && a.SectionID == enrollment.SectionID {
			return true
		}
	}
	return false
}

func (v viewerScope) allowsFilter(filter models.CohortFilter) bool {
	if v.all {
		return true
	}
	for _, a := range v.assignments {
		if a.Covers(filter.ClassID, filter.SectionID) {
			return true
		}
	}
	return false
}

func matchesFilter(enrollment *models.StudentEnrollment, filter models.CohortFilter) bool {
	if filter.ClassID == "" {
		return true
	}
	if enrollment == nil || enrollment.ClassID != filter.ClassID {
		return false
	}
	return filter.SectionID == "" || enrollment.SectionID == filter.SectionID
}

// ===== RANKING =====

type rankedAttempt struct {
	rank    int
	attempt *models.Attempt
}

// rankAttempts expects attempts in ranking order. Submitted attempts get distinct
// sequential ranks; terminated attempts are split out unranked.
func rankAttempts(attempts []*models.Attempt) ([]rankedAttempt, []*models.Attempt) {
	ranked := make([]rankedAttempt, 0, len(attempts))
	var terminated []*models.Attempt
	for _, a := range attempts {
		switch a.Status {
		case models.AttemptSubmitted:
			ranked = append(ranked, rankedAttempt{rank: len(ranked) + 1, attempt: a})
		case models.AttemptTerminated:
			terminated = append(terminated, a)
		}
	}
	return ranked, terminated
}

func cohortRow(rank int, a *models.Attempt, enrollment *models.StudentEnrollment) models.CohortResultRow {
	row := models.CohortResultRow{
		Rank:             rank,
		AttemptID:        a.ID,
		StudentID:        a.StudentID,
		Status:           a.Status,
		ObtainedMarks:    a.ObtainedMarks,
		TotalMarks:       a.TotalMarks,
		Percentage:       a.Percentage,
		IsPassed:         a.IsPassed,
		TimeTakenMinutes: a.TimeTakenMinutes,
		SubmittedAt:      a.SubmittedAt,
	}
	if enrollment != nil {
		row.ClassID = enrollment.ClassID
		row.SectionID = enrollment.SectionID
	}
	return row
}

// attachNames fills display names from the user directory. Lookup failures leave names blank.
func (s *resultService) attachNames(ctx context.Context, result *models.CohortResults) {
	ids := make([]string, 0, len(result.Ranked)+len(result.Terminated))
	for _, r := range result.Ranked {
		ids = append(ids, r.StudentID)
	}
	for _, r := range result.Terminated {
		ids = append(ids, r.StudentID)
	}
	if len(ids) == 0 {
		return
	}

	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve student names", "exam_id", result.ExamID, "error", err)
		return
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	for i := range result.Ranked {
		result.Ranked[i].StudentName = names[result.Ranked[i].StudentID]
	}
	for i := range result.Terminated {
		result.Terminated[i].StudentName = names[result.Terminated[i].StudentID]
	}
}

func cohortStats(rows []models.CohortResultRow) models.CohortStats {
	stats := models.CohortStats{Count: len(rows)}
	if len(rows) == 0 {
		return stats
	}

	sum := 0
	stats.HighestMarks = rows[0].ObtainedMarks
	stats.LowestMarks = rows[0].ObtainedMarks
	for _, r := range rows {
		sum += r.ObtainedMarks
		if r.IsPassed {
			stats.PassedCount++
		}
		stats.HighestMarks = max(stats.HighestMarks, r.ObtainedMarks)
		stats.LowestMarks = min(stats.LowestMarks, r.ObtainedMarks)
	}
	stats.AverageMarks = math.Round(float64(sum)*100/float64(len(rows))) / 100
	stats.PassPercentage = grading.Percentage(stats.PassedCount, len(rows))
	return stats
}

// ===== DETAIL =====

func (s *resultService) getExam(ctx context.Context, examID uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func (s *resultService) resultDetail(ctx context.Context, exam *models.Exam, studentID string) (*models.ResultDetail, error) {
	attempt, err := s.repo.Attempt().GetByExamAndStudent(ctx, exam.ID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if !attempt.Status.IsTerminal() {
		return nil, ErrResultNotFound
	}

	snapshot, err := attempt.Snapshot()
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.Answer().ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	byQuestion := make(map[uint]*models.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	detail := &models.ResultDetail{
		AttemptSummary: *models.NewAttemptSummary(attempt),
		ExamTitle:      exam.Title,
		Questions:      make([]models.QuestionBreakdown, 0, len(snapshot)),
	}
	for i := range snapshot {
		q := &snapshot[i]
		b := models.QuestionBreakdown{
			QuestionID:    q.QuestionID,
			Text:          q.Text,
			Options:       q.Options(),
			DisplayOrder:  q.DisplayOrder,
			Marks:         q.Marks,
			CorrectAnswer: q.CorrectAnswer,
		}
		if a, ok := byQuestion[q.QuestionID]; ok && a.SelectedAnswer != models.OptionNone {
			b.SelectedAnswer = a.SelectedAnswer
			b.Answered = true
			b.IsCorrect = a.IsCorrect
			b.MarksObtained = a.MarksObtained
		}
		detail.Questions = append(detail.Questions, b)
	}

	if attempt.Status == models.AttemptSubmitted {
		rank, err := s.rankOf(ctx, exam.ID, attempt.ID)
		if err != nil {
			return nil, err
		}
		detail.Rank = rank
	}
	return detail, nil
}

func (s *resultService) rankOf(ctx context.Context, examID, attemptID uint) (*int, error) {
	attempts, err := s.repo.Attempt().ListFinalized(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	ranked, _ := rankAttempts(attempts)
	for _, r := range ranked {
		if r.attempt.ID == attemptID {
			rank := r.rank
			return &rank, nil
		}
	}
	return nil, nil
}
