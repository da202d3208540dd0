// Package memory is an in-process Repository used by tests and by DB_DRIVER=memory.
// All state sits behind one mutex, so every method is atomic; transactions additionally
// hold txMu so a read-score-write sequence cannot interleave with answer saves.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

type state struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	nextID uint

	exams         map[uint]*models.Exam
	examQuestions map[uint][]models.ExamQuestion
	questions     map[uint]*models.Question
	roster        map[uint]map[string]struct{}
	enrollments   map[string]*models.StudentEnrollment
	assignments   map[string][]*models.TeacherAssignment
	attempts      map[uint]*models.Attempt
	attemptIndex  map[attemptKey]uint
	answers       map[uint]map[uint]*models.Answer
	users         map[string]*models.User
}

type attemptKey struct {
	examID    uint
	studentID string
}

// Repository implements repositories.Repository over in-memory maps.
type Repository struct {
	st   *state
	inTx bool
	now  func() time.Time
}

func New() *Repository {
	return &Repository{
		st: &state{
			exams:         make(map[uint]*models.Exam),
			examQuestions: make(map[uint][]models.ExamQuestion),
			questions:     make(map[uint]*models.Question),
			roster:        make(map[uint]map[string]struct{}),
			enrollments:   make(map[string]*models.StudentEnrollment),
			assignments:   make(map[string][]*models.TeacherAssignment),
			attempts:      make(map[uint]*models.Attempt),
			attemptIndex:  make(map[attemptKey]uint),
			answers:       make(map[uint]map[uint]*models.Answer),
			users:         make(map[string]*models.User),
		},
		now: time.Now,
	}
}

func (r *Repository) Exam() repositories.ExamRepository           { return examStore{r} }
func (r *Repository) Question() repositories.QuestionRepository   { return questionStore{r} }
func (r *Repository) Directory() repositories.DirectoryRepository { return directoryStore{r} }
func (r *Repository) Attempt() repositories.AttemptRepository     { return attemptStore{r} }
func (r *Repository) Answer() repositories.AnswerRepository       { return answerStore{r} }
func (r *Repository) User() repositories.UserRepository           { return userStore{r} }

// WithTransaction serializes fn against other transactions and answer saves.
// There is no rollback: fn must do its writes last, after every check that can fail.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.st.txMu.Lock()
	defer r.st.txMu.Unlock()
	return fn(&Repository{st: r.st, inTx: true, now: r.now})
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repository) Close() error {
	return nil
}

// PutUser seeds the user directory.
func (r *Repository) PutUser(user *models.User) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cp := *user
	r.st.users[user.ID] = &cp
}

func (r *Repository) lockTx() func() {
	if r.inTx {
		return func() {}
	}
	r.st.txMu.Lock()
	return r.st.txMu.Unlock
}

func (s *state) id() uint {
	s.nextID++
	return s.nextID
}

func copyAttempt(a *models.Attempt) *models.Attempt {
	cp := *a
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		cp.SubmittedAt = &t
	}
	if a.SubmitCause != nil {
		c := *a.SubmitCause
		cp.SubmitCause = &c
	}
	if a.LastSeenAt != nil {
		t := *a.LastSeenAt
		cp.LastSeenAt = &t
	}
	cp.QuestionSnapshot = append([]byte(nil), a.QuestionSnapshot...)
	return &cp
}

func sortExamQuestions(qs []models.ExamQuestion) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].DisplayOrder != qs[j].DisplayOrder {
			return qs[i].DisplayOrder < qs[j].DisplayOrder
		}
		return qs[i].ID < qs[j].ID
	})
}
