package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/SAP-F-2025/exam-engine/internal/events"
	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

type resultService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	now       Clock
}

func NewResultService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, opts Options) ResultService {
	opts = opts.withDefaults()
	return &resultService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       opts.Clock,
	}
}

// ===== STUDENT VIEW =====

// MyResult reveals correct answers, so it stays closed until results are published.
func (s *resultService) MyResult(ctx context.Context, examID uint, student models.Principal) (*models.ResultDetail, error) {
	if !student.IsStudent() {
		return nil, NewPermissionError(student.ID, examID, "result", "view", "only students have their own result")
	}

	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !exam.IsResultPublished {
		return nil, ErrResultNotPublished
	}

	return s.resultDetail(ctx, exam, student.ID)
}

// ===== STAFF VIEWS =====

func (s *resultService) CohortResults(ctx context.Context, examID uint, filter models.CohortFilter, staff models.Principal) (*models.CohortResults, error) {
	s.logger.Info("Getting cohort results",
		"exam_id", examID,
		"user_id", staff.ID,
		"class_id", filter.ClassID,
		"section_id", filter.SectionID)

	if !staff.IsStaff() {
		return nil, NewPermissionError(staff.ID, examID, "results", "view", "staff only")
	}
	if filter.SectionID != "" && filter.ClassID == "" {
		return nil, fmt.Errorf("%w: section_id requires class_id", ErrValidationFailed)
	}

	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	scope, err := s.scopeFor(ctx, staff)
	if err != nil {
		return nil, err
	}
	if filter.ClassID != "" && !scope.allowsFilter(filter) {
		return nil, NewPermissionError(staff.ID, examID, "results", "view", "class or section is not assigned to this teacher")
	}

	attempts, err := s.repo.Attempt().ListFinalized(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	studentIDs := make([]string, 0, len(attempts))
	for _, a := range attempts {
		studentIDs = append(studentIDs, a.StudentID)
	}
	enrollments, err := s.repo.Directory().ListEnrollments(ctx, exam.SessionID, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	byStudent := make(map[string]*models.StudentEnrollment, len(enrollments))
	for _, e := range enrollments {
		byStudent[e.StudentID] = e
	}

	ranked, terminated := rankAttempts(attempts)

	result := &models.CohortResults{
		ExamID:            exam.ID,
		ExamTitle:         exam.Title,
		IsResultPublished: exam.IsResultPublished,
		Filter:            filter,
		Ranked:            make([]models.CohortResultRow, 0, len(ranked)),
		Terminated:        make([]models.CohortResultRow, 0),
	}

	for _, r := range ranked {
		enrollment := byStudent[r.attempt.StudentID]
		if !scope.visible(enrollment) || !matchesFilter(enrollment, filter) {
			continue
		}
		result.Ranked = append(result.Ranked, cohortRow(r.rank, r.attempt, enrollment))
	}
	for _, a := range terminated {
		enrollment := byStudent[a.StudentID]
		if !scope.visible(enrollment) || !matchesFilter(enrollment, filter) {
			continue
		}
		result.Terminated = append(result.Terminated, cohortRow(0, a, enrollment))
	}

	s.attachNames(ctx, result)
	result.Stats = cohortStats(result.Ranked)
	return result, nil
}

// StudentResult lets staff review one student before publication.
func (s *resultService) StudentResult(ctx context.Context, examID uint, studentID string, staff models.Principal) (*models.ResultDetail, error) {
	if !staff.IsStaff() {
		return nil, NewPermissionError(staff.ID, examID, "result", "view", "staff only")
	}

	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	if !staff.IsAdmin() {
		scope, err := s.scopeFor(ctx, staff)
		if err != nil {
			return nil, err
		}
		enrollment, err := s.repo.Directory().GetEnrollment(ctx, studentID, exam.SessionID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get enrollment: %w", err)
		}
		if !scope.visible(enrollment) {
			return nil, NewPermissionError(staff.ID, studentID, "result", "view", "student is not in an assigned class")
		}
	}

	return s.resultDetail(ctx, exam, studentID)
}

// ===== PUBLICATION =====

// PublishResults only flips visibility. Marks were fixed when each attempt was finalized.
func (s *resultService) PublishResults(ctx context.Context, examID uint, isPublished bool, admin models.Principal) (*models.PublishResultsResponse, error) {
	if !admin.IsAdmin() {
		return nil, NewPermissionError(admin.ID, examID, "exam", "publish_results", "administrators only")
	}

	changed, err := s.repo.Exam().SetResultPublished(ctx, examID, isPublished)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to update result publication: %w", err)
	}

	s.logger.Info("Result publication updated",
		"exam_id", examID,
		"is_result_published", isPublished,
		"changed", changed,
		"user_id", admin.ID)

	if changed && isPublished {
		s.publishResultsEvent(ctx, examID, admin.ID)
	}

	return &models.PublishResultsResponse{
		ExamID:            examID,
		IsResultPublished: isPublished,
		Changed:           changed,
	}, nil
}

func (s *resultService) publishResultsEvent(ctx context.Context, examID uint, adminID string) {
	event := events.NewEvent(events.TypeResultsPublished, strconv.FormatUint(uint64(examID), 10), events.ResultsPublishedData{
		ExamID:      examID,
		PublishedBy: adminID,
		PublishedAt: s.now().UTC().Truncate(time.Second),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish results published event", "exam_id", examID, "error", err)
	}
}
