package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-engine/internal/events"
	"github.com/SAP-F-2025/exam-engine/internal/grading"
	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
	"github.com/SAP-F-2025/exam-engine/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       Clock
	loc       *time.Location
}

func NewAttemptService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator, opts Options) AttemptService {
	opts = opts.withDefaults()
	return &attemptService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		now:       opts.Clock,
		loc:       opts.Location,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, examID uint, student models.Principal) (*models.StartAttemptResponse, error) {
	s.logger.Info("Starting exam attempt",
		"exam_id", examID,
		"student_id", student.ID)

	if !student.IsStudent() {
		return nil, NewPermissionError(student.ID, examID, "exam", "start", "only students can sit exams")
	}

	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if !exam.IsPublished {
		return nil, ErrExamNotPublished
	}

	onRoster, err := s.repo.Directory().IsOnRoster(ctx, examID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check roster: %w", err)
	}
	if !onRoster {
		return nil, ErrNotEligible
	}

	existing, err := s.repo.Attempt().GetByExamAndStudent(ctx, examID, student.ID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if existing != nil {
		return s.resumeOrReject(ctx, exam, existing)
	}

	now := s.now()
	if !WindowFor(exam, now, s.loc).Contains(now) {
		return nil, ErrOutsideExamWindow
	}

	snapshot, err := s.buildSnapshot(ctx, examID)
	if err != nil {
		return nil, err
	}

	attempt := &models.Attempt{
		ExamID:       examID,
		StudentID:    student.ID,
		Status:       models.AttemptInProgress,
		StartedAt:    now,
		DeadlineAt:   now.Add(exam.Duration()),
		TotalMarks:   exam.TotalMarks,
		PassingMarks: exam.PassingMarks,
	}
	if attempt.TotalMarks == 0 {
		attempt.TotalMarks = grading.SumMarks(snapshot)
	}
	if err := attempt.SetSnapshot(snapshot); err != nil {
		return nil, err
	}

	stored, created, err := s.repo.Attempt().CreateIfAbsent(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	if !created {
		// Lost a race with a concurrent start for the same student.
		return s.resumeOrReject(ctx, exam, stored)
	}

	s.logger.Info("Exam attempt started",
		"attempt_id", stored.ID,
		"exam_id", examID,
		"student_id", student.ID,
		"deadline_at", stored.DeadlineAt)

	return s.startResponse(exam, stored, snapshot, nil, false), nil
}

func (s *attemptService) SaveAnswer(ctx context.Context, attemptID uint, req *models.SaveAnswerRequest, student models.Principal) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, err := s.ownedAttempt(ctx, attemptID, student, "answer")
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}
	if attempt.Expired(s.now()) {
		if _, _, err := s.finalize(ctx, attemptID, models.CauseTimeout); err != nil {
			return err
		}
		return ErrDeadlineExpired
	}

	snapshot, err := attempt.Snapshot()
	if err != nil {
		return err
	}
	question := findSnapshotQuestion(snapshot, req.QuestionID)
	if question == nil {
		return ErrQuestionNotInExam
	}

	selected, ok := models.ParseAnswerOption(req.SelectedAnswer)
	if !ok || (selected != models.OptionNone && !question.Offers(selected)) {
		return ErrInvalidAnswer
	}

	err = s.repo.Answer().Upsert(ctx, &models.Answer{
		AttemptID:      attemptID,
		QuestionID:     req.QuestionID,
		SelectedAnswer: selected,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrAttemptClosed) {
			return ErrAttemptNotActive
		}
		return fmt.Errorf("failed to save answer: %w", err)
	}

	s.logger.Debug("Answer saved",
		"attempt_id", attemptID,
		"question_id", req.QuestionID,
		"selected_answer", selected)
	return nil
}

func (s *attemptService) Submit(ctx context.Context, attemptID uint, cause models.SubmitCause, student models.Principal) (*models.AttemptSummary, error) {
	if cause == "" {
		cause = models.CauseManual
	}
	if !cause.Valid() {
		return nil, ErrInvalidCause
	}

	attempt, err := s.ownedAttempt(ctx, attemptID, student, "submit")
	if err != nil {
		return nil, err
	}
	if attempt.Status.IsTerminal() {
		// Repeat submits return the stored outcome.
		return models.NewAttemptSummary(attempt), nil
	}

	finalized, _, err := s.finalize(ctx, attemptID, cause)
	if err != nil {
		return nil, err
	}
	return models.NewAttemptSummary(finalized), nil
}

func (s *attemptService) GetStatus(ctx context.Context, attemptID uint, student models.Principal) (*models.AttemptStatusResponse, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, student, "view")
	if err != nil {
		return nil, err
	}

	if attempt.Status == models.AttemptInProgress && attempt.Expired(s.now()) {
		if attempt, _, err = s.finalize(ctx, attemptID, models.CauseTimeout); err != nil {
			return nil, err
		}
	}
	return s.statusResponse(ctx, attempt)
}

// Heartbeat records client liveness and returns the authoritative remaining time.
func (s *attemptService) Heartbeat(ctx context.Context, attemptID uint, student models.Principal) (*models.AttemptStatusResponse, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, student, "heartbeat")
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	now := s.now()
	if attempt.Expired(now) {
		if _, _, err := s.finalize(ctx, attemptID, models.CauseTimeout); err != nil {
			return nil, err
		}
		return nil, ErrDeadlineExpired
	}

	if err := s.repo.Attempt().Touch(ctx, attemptID, now); err != nil {
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return s.statusResponse(ctx, attempt)
}

func (s *attemptService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.repo.Attempt().ListOverdue(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue attempts: %w", err)
	}

	expired := 0
	for _, attempt := range overdue {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		_, applied, err := s.finalize(ctx, attempt.ID, models.CauseTimeout)
		if err != nil {
			s.logger.Error("Failed to expire attempt", "attempt_id", attempt.ID, "error", err)
			continue
		}
		if applied {
			expired++
		}
	}

	if expired > 0 {
		s.logger.Info("Expired overdue attempts", "count", expired)
	}
	return expired, nil
}
