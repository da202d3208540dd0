package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/SAP-F-2025/exam-engine/internal/events"
	"github.com/SAP-F-2025/exam-engine/internal/grading"
	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

// ===== HELPER METHODS =====

func (s *attemptService) ownedAttempt(ctx context.Context, attemptID uint, student models.Principal, action string) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != student.ID {
		return nil, NewPermissionError(student.ID, attemptID, "attempt", action, "attempt belongs to another student")
	}
	return attempt, nil
}

// resumeOrReject handles a start request when the student already has an attempt.
func (s *attemptService) resumeOrReject(ctx context.Context, exam *models.Exam, attempt *models.Attempt) (*models.StartAttemptResponse, error) {
	if attempt.Status.IsTerminal() {
		return nil, ErrAlreadyAttempted
	}

	if attempt.Expired(s.now()) {
		if _, _, err := s.finalize(ctx, attempt.ID, models.CauseTimeout); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyAttempted
	}

	snapshot, err := attempt.Snapshot()
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.Answer().ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}

	s.logger.Info("Resuming exam attempt",
		"attempt_id", attempt.ID,
		"exam_id", exam.ID,
		"student_id", attempt.StudentID)

	return s.startResponse(exam, attempt, snapshot, selectionsOf(answers), true), nil
}

// buildSnapshot freezes the exam's current question list, ordered for display.
func (s *attemptService) buildSnapshot(ctx context.Context, examID uint) ([]models.SnapshotQuestion, error) {
	examQuestions, err := s.repo.Exam().GetQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam questions: %w", err)
	}

	snapshot := make([]models.SnapshotQuestion, 0, len(examQuestions))
	for _, eq := range examQuestions {
		q := &eq.Question
		if q.ID == 0 {
			if q, err = s.repo.Question().GetByID(ctx, eq.QuestionID); err != nil {
				return nil, fmt.Errorf("failed to get question %d: %w", eq.QuestionID, err)
			}
		}
		snapshot = append(snapshot, models.SnapshotQuestion{
			QuestionID:    eq.QuestionID,
			Text:          q.Text,
			OptionA:       q.OptionA,
			OptionB:       q.OptionB,
			OptionC:       q.OptionC,
			OptionD:       q.OptionD,
			OptionE:       q.OptionE,
			CorrectAnswer: q.CorrectAnswer,
			Marks:         eq.Marks,
			DisplayOrder:  eq.DisplayOrder,
		})
	}
	return snapshot, nil
}

func (s *attemptService) startResponse(exam *models.Exam, attempt *models.Attempt, snapshot []models.SnapshotQuestion, selections map[uint]models.AnswerOption, resumed bool) *models.StartAttemptResponse {
	questions := make([]models.AttemptQuestion, 0, len(snapshot))
	for i := range snapshot {
		q := &snapshot[i]
		questions = append(questions, models.AttemptQuestion{
			QuestionID:     q.QuestionID,
			Text:           q.Text,
			Options:        q.Options(),
			Marks:          q.Marks,
			DisplayOrder:   q.DisplayOrder,
			SelectedAnswer: selections[q.QuestionID],
		})
	}

	return &models.StartAttemptResponse{
		AttemptID: attempt.ID,
		Resumed:   resumed,
		Exam: models.ExamOverview{
			ID:              exam.ID,
			Title:           exam.Title,
			SubjectID:       exam.SubjectID,
			DurationMinutes: exam.DurationMinutes,
			TotalMarks:      attempt.TotalMarks,
			PassingMarks:    attempt.PassingMarks,
			Instructions:    exam.Instructions,
		},
		Questions:        questions,
		StartedAt:        attempt.StartedAt,
		DeadlineAt:       attempt.DeadlineAt,
		RemainingSeconds: attempt.RemainingSeconds(s.now()),
	}
}

func (s *attemptService) statusResponse(ctx context.Context, attempt *models.Attempt) (*models.AttemptStatusResponse, error) {
	snapshot, err := attempt.Snapshot()
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.Answer().ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}

	answered := 0
	for _, a := range answers {
		if a.SelectedAnswer != models.OptionNone {
			answered++
		}
	}

	resp := &models.AttemptStatusResponse{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		Status:        attempt.Status,
		StartedAt:     attempt.StartedAt,
		DeadlineAt:    attempt.DeadlineAt,
		AnsweredCount: answered,
		QuestionCount: len(snapshot),
	}
	if attempt.Status == models.AttemptInProgress {
		resp.RemainingSeconds = attempt.RemainingSeconds(s.now())
	}
	return resp, nil
}

// finalize scores and closes the attempt exactly once. Callers that lose the race get the
// stored outcome back with applied=false.
func (s *attemptService) finalize(ctx context.Context, attemptID uint, cause models.SubmitCause) (*models.Attempt, bool, error) {
	var result *models.Attempt
	var applied bool

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		if attempt.Status.IsTerminal() {
			result = attempt
			return nil
		}

		snapshot, err := attempt.Snapshot()
		if err != nil {
			return err
		}
		answers, err := tx.Answer().ListByAttempt(ctx, attemptID)
		if err != nil {
			return fmt.Errorf("failed to get answers: %w", err)
		}

		effective := cause
		submittedAt := s.now()
		if submittedAt.After(attempt.DeadlineAt) {
			// Late discovery must not push the attempt down the ranking.
			submittedAt = attempt.DeadlineAt
			if effective == models.CauseManual {
				effective = models.CauseTimeout
			}
		}

		graded := grading.Score(grading.Input{
			Questions:    snapshot,
			Selections:   selectionsOf(answers),
			TotalMarks:   attempt.TotalMarks,
			PassingMarks: attempt.PassingMarks,
		})
		applyGrade(attempt, answers, graded)

		attempt.Status = effective.TerminalStatus()
		attempt.SubmitCause = &effective
		attempt.SubmittedAt = &submittedAt
		attempt.TimeTakenMinutes = minutesTaken(attempt.StartedAt, submittedAt, attempt.DeadlineAt)

		ok, err := tx.Attempt().Finalize(ctx, attempt, answers)
		if err != nil {
			return fmt.Errorf("failed to finalize attempt: %w", err)
		}
		if !ok {
			if result, err = tx.Attempt().GetByID(ctx, attemptID); err != nil {
				return fmt.Errorf("failed to reload attempt: %w", err)
			}
			return nil
		}

		result = attempt
		applied = true
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to finalize attempt", "attempt_id", attemptID, "cause", cause, "error", err)
		return nil, false, err
	}

	if applied {
		s.logger.Info("Attempt finalized",
			"attempt_id", result.ID,
			"exam_id", result.ExamID,
			"student_id", result.StudentID,
			"cause", *result.SubmitCause,
			"obtained_marks", result.ObtainedMarks)
		s.publishFinalized(ctx, result)
	}
	return result, applied, nil
}

func (s *attemptService) publishFinalized(ctx context.Context, attempt *models.Attempt) {
	event := events.NewEvent(events.TypeAttemptFinalized, strconv.FormatUint(uint64(attempt.ExamID), 10), events.AttemptFinalizedData{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		StudentID:     attempt.StudentID,
		Status:        attempt.Status,
		Cause:         *attempt.SubmitCause,
		ObtainedMarks: attempt.ObtainedMarks,
		TotalMarks:    attempt.TotalMarks,
		Percentage:    attempt.Percentage,
		IsPassed:      attempt.IsPassed,
		SubmittedAt:   *attempt.SubmittedAt,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish attempt finalized event", "attempt_id", attempt.ID, "error", err)
	}
}

func applyGrade(attempt *models.Attempt, answers []*models.Answer, graded grading.Result) {
	attempt.ObtainedMarks = graded.ObtainedMarks
	attempt.Percentage = graded.Percentage
	attempt.IsPassed = graded.IsPassed
	attempt.CorrectCount = graded.CorrectCount
	attempt.WrongCount = graded.WrongCount
	attempt.UnansweredCount = graded.UnansweredCount

	byQuestion := make(map[uint]grading.QuestionResult, len(graded.Questions))
	for _, qr := range graded.Questions {
		byQuestion[qr.QuestionID] = qr
	}
	for _, a := range answers {
		qr := byQuestion[a.QuestionID]
		a.IsCorrect = qr.IsCorrect
		a.MarksObtained = qr.MarksObtained
	}
}

// minutesTaken rounds up and never exceeds the attempt's time budget.
func minutesTaken(startedAt, submittedAt, deadlineAt time.Time) int {
	budget := int(math.Ceil(deadlineAt.Sub(startedAt).Minutes()))
	taken := int(math.Ceil(submittedAt.Sub(startedAt).Minutes()))
	if taken > budget {
		taken = budget
	}
	if taken < 0 {
		taken = 0
	}
	return taken
}

func selectionsOf(answers []*models.Answer) map[uint]models.AnswerOption {
	selections := make(map[uint]models.AnswerOption, len(answers))
	for _, a := range answers {
		selections[a.QuestionID] = a.SelectedAnswer
	}
	return selections
}

func findSnapshotQuestion(snapshot []models.SnapshotQuestion, questionID uint) *models.SnapshotQuestion {
	for i := range snapshot {
		if snapshot[i].QuestionID == questionID {
			return &snapshot[i]
		}
	}
	return nil
}
