package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
	"github.com/SAP-F-2025/exam-engine/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	loc       *time.Location
}

func NewExamService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, opts Options) ExamService {
	opts = opts.withDefaults()
	return &examService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		loc:       opts.Location,
	}
}

func (s *examService) Create(ctx context.Context, req *models.ExamCreateRequest, staff models.Principal) (*models.Exam, error) {
	s.logger.Info("Creating exam", "title", req.Title, "user_id", staff.ID)

	if !staff.IsStaff() {
		return nil, NewPermissionError(staff.ID, nil, "exam", "create", "staff only")
	}
	if err := s.validator.ValidateExamCreate(req); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Title:           req.Title,
		SubjectID:       req.SubjectID,
		SessionID:       req.SessionID,
		DurationMinutes: req.DurationMinutes,
		PassingMarks:    req.PassingMarks,
		Instructions:    req.Instructions,
		CreatedBy:       staff.ID,
	}
	if req.TotalMarks != nil {
		exam.TotalMarks = *req.TotalMarks
	}
	if req.ExamDate != nil {
		date, err := time.ParseInLocation(validator.DateLayout, *req.ExamDate, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: exam_date: %v", ErrValidationFailed, err)
		}
		exam.ExamDate = &date
	}

	var err error
	if exam.TimeFrom, err = parseTimeOfDay(req.TimeFrom); err != nil {
		return nil, fmt.Errorf("%w: time_from: %v", ErrValidationFailed, err)
	}
	if exam.TimeTo, err = parseTimeOfDay(req.TimeTo); err != nil {
		return nil, fmt.Errorf("%w: time_to: %v", ErrValidationFailed, err)
	}

	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created", "exam_id", exam.ID, "user_id", staff.ID)
	return exam, nil
}

func (s *examService) GetByID(ctx context.Context, examID uint, staff models.Principal) (*models.ExamResponse, error) {
	if !staff.IsStaff() {
		return nil, NewPermissionError(staff.ID, examID, "exam", "view", "staff only")
	}
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	return s.examResponse(ctx, exam)
}

// SetQuestions replaces the exam's question list. Attempts already started keep their snapshot.
func (s *examService) SetQuestions(ctx context.Context, examID uint, req *models.ExamQuestionsRequest, staff models.Principal) (*models.ExamResponse, error) {
	exam, err := s.editableExam(ctx, examID, staff, "edit")
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateExamQuestions(req); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(req.Questions))
	for _, q := range req.Questions {
		ids = append(ids, q.QuestionID)
	}
	catalog, err := s.repo.Question().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	byID := make(map[uint]*models.Question, len(catalog))
	for _, q := range catalog {
		byID[q.ID] = q
	}

	rows := make([]models.ExamQuestion, 0, len(req.Questions))
	for _, q := range req.Questions {
		question, ok := byID[q.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, q.QuestionID)
		}
		marks := question.DefaultMarks
		if q.Marks != nil {
			marks = *q.Marks
		}
		rows = append(rows, models.ExamQuestion{
			ExamID:       examID,
			QuestionID:   q.QuestionID,
			Marks:        marks,
			DisplayOrder: q.DisplayOrder,
		})
	}

	if err := s.repo.Exam().ReplaceQuestions(ctx, examID, rows); err != nil {
		return nil, fmt.Errorf("failed to set exam questions: %w", err)
	}

	s.logger.Info("Exam questions set", "exam_id", examID, "count", len(rows), "user_id", staff.ID)
	return s.examResponse(ctx, exam)
}

func (s *examService) SetRoster(ctx context.Context, examID uint, req *models.ExamRosterRequest, staff models.Principal) (*models.ExamResponse, error) {
	exam, err := s.editableExam(ctx, examID, staff, "edit")
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(req.StudentIDs))
	studentIDs := make([]string, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		studentIDs = append(studentIDs, id)
	}

	if err := s.repo.Directory().ReplaceRoster(ctx, examID, studentIDs); err != nil {
		return nil, fmt.Errorf("failed to set roster: %w", err)
	}

	s.logger.Info("Exam roster set", "exam_id", examID, "count", len(studentIDs), "user_id", staff.ID)
	return s.examResponse(ctx, exam)
}

// SetPublished toggles student visibility. An exam without questions cannot be published.
func (s *examService) SetPublished(ctx context.Context, examID uint, isPublished bool, staff models.Principal) (*models.ExamResponse, error) {
	exam, err := s.editableExam(ctx, examID, staff, "publish")
	if err != nil {
		return nil, err
	}

	if isPublished {
		questions, err := s.repo.Exam().GetQuestions(ctx, examID)
		if err != nil {
			return nil, fmt.Errorf("failed to get exam questions: %w", err)
		}
		if len(questions) == 0 {
			return nil, fmt.Errorf("%w: exam has no questions", ErrValidationFailed)
		}
	}

	if err := s.repo.Exam().SetPublished(ctx, examID, isPublished); err != nil {
		return nil, fmt.Errorf("failed to update exam publication: %w", err)
	}
	exam.IsPublished = isPublished

	s.logger.Info("Exam publication updated", "exam_id", examID, "is_published", isPublished, "user_id", staff.ID)
	return s.examResponse(ctx, exam)
}

// ===== HELPER METHODS =====

func (s *examService) getExam(ctx context.Context, examID uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

// editableExam allows the creating teacher and administrators.
func (s *examService) editableExam(ctx context.Context, examID uint, staff models.Principal, action string) (*models.Exam, error) {
	if !staff.IsStaff() {
		return nil, NewPermissionError(staff.ID, examID, "exam", action, "staff only")
	}
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !staff.IsAdmin() && exam.CreatedBy != staff.ID {
		return nil, NewPermissionError(staff.ID, examID, "exam", action, "not the exam owner")
	}
	return exam, nil
}

func (s *examService) examResponse(ctx context.Context, exam *models.Exam) (*models.ExamResponse, error) {
	questions, err := s.repo.Exam().GetQuestions(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam questions: %w", err)
	}
	rosterSize, err := s.repo.Directory().RosterSize(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster size: %w", err)
	}
	exam.Questions = questions
	return &models.ExamResponse{
		Exam:          exam,
		QuestionCount: len(questions),
		RosterSize:    rosterSize,
	}, nil
}

func parseTimeOfDay(value *string) (*datatypes.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(validator.TimeOfDayLayout, *value)
	if err != nil {
		return nil, err
	}
	tod := datatypes.NewTime(t.Hour(), t.Minute(), 0, 0)
	return &tod, nil
}
