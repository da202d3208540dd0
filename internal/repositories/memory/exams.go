package memory

import (
	"context"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

type examStore struct{ r *Repository }

func (s examStore) Create(ctx context.Context, exam *models.Exam) error {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	exam.ID = st.id()
	now := s.r.now()
	exam.CreatedAt, exam.UpdatedAt = now, now
	cp := *exam
	cp.Questions = nil
	st.exams[exam.ID] = &cp
	return nil
}

func (s examStore) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	exam, ok := st.exams[id]
	if !ok {
		return nil, repositories.NewNotFoundError("exam", id)
	}
	cp := *exam
	return &cp, nil
}

func (s examStore) Update(ctx context.Context, exam *models.Exam) error {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	existing, ok := st.exams[exam.ID]
	if !ok {
		return repositories.NewNotFoundError("exam", exam.ID)
	}
	cp := *exam
	cp.Questions = nil
	cp.IsPublished = existing.IsPublished
	cp.IsResultPublished = existing.IsResultPublished
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = s.r.now()
	st.exams[exam.ID] = &cp
	return nil
}

func (s examStore) GetQuestions(ctx context.Context, examID uint) ([]models.ExamQuestion, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	rows := st.examQuestions[examID]
	out := make([]models.ExamQuestion, 0, len(rows))
	for _, row := range rows {
		if q, ok := st.questions[row.QuestionID]; ok {
			row.Question = *q
		}
		out = append(out, row)
	}
	sortExamQuestions(out)
	return out, nil
}

func (s examStore) ReplaceQuestions(ctx context.Context, examID uint, questions []models.ExamQuestion) error {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	rows := make([]models.ExamQuestion, 0, len(questions))
	for _, q := range questions {
		q.ID = st.id()
		q.ExamID = examID
		q.Question = models.Question{}
		rows = append(rows, q)
	}
	st.examQuestions[examID] = rows
	return nil
}

func (s examStore) SetPublished(ctx context.Context, id uint, published bool) error {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	exam, ok := st.exams[id]
	if !ok {
		return repositories.NewNotFoundError("exam", id)
	}
	exam.IsPublished = published
	return nil
}

func (s examStore) SetResultPublished(ctx context.Context, id uint, published bool) (bool, error) {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	exam, ok := st.exams[id]
	if !ok {
		return false, repositories.NewNotFoundError("exam", id)
	}
	changed := exam.IsResultPublished != published
	exam.IsResultPublished = published
	return changed, nil
}

type questionStore struct{ r *Repository }

func (s questionStore) Create(ctx context.Context, question *models.Question) error {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	question.ID = st.id()
	cp := *question
	st.questions[question.ID] = &cp
	return nil
}

func (s questionStore) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	q, ok := st.questions[id]
	if !ok {
		return nil, repositories.NewNotFoundError("question", id)
	}
	cp := *q
	return &cp, nil
}

func (s questionStore) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*models.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := st.questions[id]; ok {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}
