package memory

import (
	"context"
	"sort"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

type directoryStore struct{ r *Repository }

func enrollmentKey(studentID, sessionID string) string {
	return sessionID + "\x00" + studentID
}

func (s directoryStore) ReplaceRoster(ctx context.Context, examID uint, studentIDs []string) error {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	set := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		set[id] = struct{}{}
	}
	st.roster[examID] = set
	return nil
}

func (s directoryStore) IsOnRoster(ctx context.Context, examID uint, studentID string) (bool, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	_, ok := st.roster[examID][studentID]
	return ok, nil
}

func (s directoryStore) RosterSize(ctx context.Context, examID uint) (int, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.roster[examID]), nil
}

func (s directoryStore) UpsertEnrollment(ctx context.Context, enrollment *models.StudentEnrollment) error {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	cp := *enrollment
	st.enrollments[enrollmentKey(enrollment.StudentID, enrollment.SessionID)] = &cp
	return nil
}

func (s directoryStore) GetEnrollment(ctx context.Context, studentID, sessionID string) (*models.StudentEnrollment, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	e, ok := st.enrollments[enrollmentKey(studentID, sessionID)]
	if !ok {
		return nil, repositories.NewNotFoundError("enrollment", studentID)
	}
	cp := *e
	return &cp, nil
}

func (s directoryStore) ListEnrollments(ctx context.Context, sessionID string, studentIDs []string) ([]*models.StudentEnrollment, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*models.StudentEnrollment, 0, len(studentIDs))
	for _, id := range studentIDs {
		if e, ok := st.enrollments[enrollmentKey(id, sessionID)]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s directoryStore) AssignTeacher(ctx context.Context, assignment *models.TeacherAssignment) error {
	st := s.r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, existing := range st.assignments[assignment.TeacherID] {
		if existing.ClassID == assignment.ClassID && existing.SectionID == assignment.SectionID {
			return nil
		}
	}
	cp := *assignment
	st.assignments[assignment.TeacherID] = append(st.assignments[assignment.TeacherID], &cp)
	return nil
}

func (s directoryStore) ListTeacherAssignments(ctx context.Context, teacherID string) ([]*models.TeacherAssignment, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*models.TeacherAssignment, 0, len(st.assignments[teacherID]))
	for _, a := range st.assignments[teacherID] {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassID != out[j].ClassID {
			return out[i].ClassID < out[j].ClassID
		}
		return out[i].SectionID < out[j].SectionID
	})
	return out, nil
}

type userStore struct{ r *Repository }

func (s userStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	u, ok := st.users[id]
	if !ok {
		return nil, repositories.NewNotFoundError("user", id)
	}
	cp := *u
	return &cp, nil
}

func (s userStore) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	st := s.r.st
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := st.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}
