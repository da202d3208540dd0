package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

type attemptStore struct{ r *Repository }

func (s attemptStore) CreateIfAbsent(ctx context.Context, attempt *models.Attempt) (*models.Attempt, bool, error) {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	key := attemptKey{examID: attempt.ExamID, studentID: attempt.StudentID}
	if id, ok := st.attemptIndex[key]; ok {
		return copyAttempt(st.attempts[id]), false, nil
	}

	attempt.ID = st.id()
	now := s.r.now()
	attempt.CreatedAt, attempt.UpdatedAt = now, now
	st.attempts[attempt.ID] = copyAttempt(attempt)
	st.attemptIndex[key] = attempt.ID
	return copyAttempt(attempt), true, nil
}

func (s attemptStore) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	a, ok := st.attempts[id]
	if !ok {
		return nil, repositories.NewNotFoundError("attempt", id)
	}
	return copyAttempt(a), nil
}

// GetByIDForUpdate relies on the transaction mutex for exclusion.
func (s attemptStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	return s.GetByID(ctx, id)
}

func (s attemptStore) GetByExamAndStudent(ctx context.Context, examID uint, studentID string) (*models.Attempt, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	id, ok := st.attemptIndex[attemptKey{examID: examID, studentID: studentID}]
	if !ok {
		return nil, repositories.NewNotFoundError("attempt", studentID)
	}
	return copyAttempt(st.attempts[id]), nil
}

func (s attemptStore) Finalize(ctx context.Context, attempt *models.Attempt, answers []*models.Answer) (bool, error) {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	stored, ok := st.attempts[attempt.ID]
	if !ok {
		return false, repositories.NewNotFoundError("attempt", attempt.ID)
	}
	if stored.Status != models.AttemptInProgress {
		return false, nil
	}

	updated := copyAttempt(attempt)
	updated.QuestionSnapshot = stored.QuestionSnapshot
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = s.r.now()
	st.attempts[attempt.ID] = updated

	rows := st.answers[attempt.ID]
	for _, graded := range answers {
		if row, ok := rows[graded.QuestionID]; ok {
			row.IsCorrect = graded.IsCorrect
			row.MarksObtained = graded.MarksObtained
		}
	}
	return true, nil
}

func (s attemptStore) Touch(ctx context.Context, id uint, seenAt time.Time) error {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if a, ok := st.attempts[id]; ok && a.Status == models.AttemptInProgress {
		t := seenAt
		a.LastSeenAt = &t
	}
	return nil
}

func (s attemptStore) ListFinalized(ctx context.Context, examID uint) ([]*models.Attempt, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*models.Attempt
	for _, a := range st.attempts {
		if a.ExamID == examID && a.Status.IsTerminal() {
			out = append(out, copyAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ObtainedMarks != out[j].ObtainedMarks {
			return out[i].ObtainedMarks > out[j].ObtainedMarks
		}
		ti, tj := submittedAt(out[i]), submittedAt(out[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s attemptStore) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*models.Attempt
	for _, a := range st.attempts {
		if a.Status == models.AttemptInProgress && a.DeadlineAt.Before(now) {
			out = append(out, copyAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeadlineAt.Equal(out[j].DeadlineAt) {
			return out[i].DeadlineAt.Before(out[j].DeadlineAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func submittedAt(a *models.Attempt) time.Time {
	if a.SubmittedAt == nil {
		return time.Time{}
	}
	return *a.SubmittedAt
}

type answerStore struct{ r *Repository }

func (s answerStore) Upsert(ctx context.Context, answer *models.Answer) error {
	defer s.r.lockTx()()

	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	a, ok := st.attempts[answer.AttemptID]
	if !ok {
		return repositories.NewNotFoundError("attempt", answer.AttemptID)
	}
	if a.Status != models.AttemptInProgress {
		return repositories.ErrAttemptClosed
	}

	rows, ok := st.answers[answer.AttemptID]
	if !ok {
		rows = make(map[uint]*models.Answer)
		st.answers[answer.AttemptID] = rows
	}

	now := s.r.now()
	if existing, ok := rows[answer.QuestionID]; ok {
		existing.SelectedAnswer = answer.SelectedAnswer
		existing.UpdatedAt = now
		answer.ID = existing.ID
		return nil
	}

	answer.ID = st.id()
	answer.CreatedAt, answer.UpdatedAt = now, now
	cp := *answer
	rows[answer.QuestionID] = &cp
	return nil
}

func (s answerStore) ListByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	rows := st.answers[attemptID]
	out := make([]*models.Answer, 0, len(rows))
	for _, row := range rows {
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}
