// Package memory holds an in-process Ledger used by tests and by the memory
// ledger driver for local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediagen/internal/domain"
)

// Store keeps every table behind one mutex.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	jobs     map[string]*domain.Job
	users    map[string]*domain.User
	contests map[string]*domain.ContestEntry
	rewards  []domain.RemixReward
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		jobs:     make(map[string]*domain.Job),
		users:    make(map[string]*domain.User),
		contests: make(map[string]*domain.ContestEntry),
	}
}

// Ledger exposes the store through the domain repository interfaces.
func (s *Store) Ledger() domain.Ledger {
	return domain.Ledger{
		Jobs:     jobRepo{s},
		Users:    userRepo{s},
		Contests: contestRepo{s},
		Rewards:  rewardRepo{s},
	}
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// PutContestEntry inserts or replaces a contest entry.
func (s *Store) PutContestEntry(e domain.ContestEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[e.ID] = &e
}

// PutJob inserts or replaces a job as-is, keeping its id.
func (s *Store) PutJob(j domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = s.now()
	}
	j.InputImages = append([]string(nil), j.InputImages...)
	s.jobs[j.ID] = &j
}

// User returns a copy of the stored user.
func (s *Store) User(id string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

// Job returns a copy of the stored job.
func (s *Store) Job(id string) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return cloneJob(j), true
}

// Jobs returns every stored job sorted by creation time.
func (s *Store) Jobs() []domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, cloneJob(j))
	}
	sortJobs(out)
	return out
}

// ContestEntry returns a copy of the stored entry.
func (s *Store) ContestEntry(id string) (domain.ContestEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.contests[id]
	if !ok {
		return domain.ContestEntry{}, false
	}
	return *e, true
}

// Rewards returns every reward row in insertion order.
func (s *Store) Rewards() []domain.RemixReward {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RemixReward(nil), s.rewards...)
}

type jobRepo struct{ s *Store }

func (r jobRepo) Create(ctx context.Context, job *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job.ID = uuid.NewString()
	job.CreatedAt = r.s.now()
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	if job.MediaType == "" {
		job.MediaType = domain.MediaTypeImage
	}
	stored := cloneJob(job)
	r.s.jobs[job.ID] = &stored
	return nil
}

func (r jobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneJob(j)
	return &out, nil
}

func (r jobRepo) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Job
	for _, j := range r.s.jobs {
		if matches(j, filter) {
			out = append(out, cloneJob(j))
		}
	}
	sortJobs(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r jobRepo) Update(ctx context.Context, id string, patch domain.JobPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	applyJobPatch(j, patch)
	return nil
}

func (r jobRepo) Transition(ctx context.Context, id string, from domain.JobStatus, patch domain.JobPatch) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok || j.Status != from {
		return false, nil
	}
	applyJobPatch(j, patch)
	return true, nil
}

func (r jobRepo) PendingUserIDs(ctx context.Context, filter domain.JobFilter) ([]string, error) {
	filter.Status = domain.JobStatusPending
	filter.UserID = ""
	filter.After = nil
	limit := filter.Limit
	filter.Limit = 0
	jobs, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, j := range jobs {
		if seen[j.UserID] || j.UserID <= filter.AfterUserID {
			continue
		}
		seen[j.UserID] = true
		ids = append(ids, j.UserID)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := r.s.User(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) Update(ctx context.Context, id string, patch domain.UserPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Balance != nil {
		u.Balance = *patch.Balance
	}
	if patch.RemixCount != nil {
		u.RemixCount = *patch.RemixCount
	}
	return nil
}

type contestRepo struct{ s *Store }

func (r contestRepo) GetByID(ctx context.Context, id string) (*domain.ContestEntry, error) {
	e, ok := r.s.ContestEntry(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r contestRepo) SetRemixCount(ctx context.Context, id string, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.contests[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.RemixCount = count
	return nil
}

type rewardRepo struct{ s *Store }

func (r rewardRepo) Create(ctx context.Context, reward *domain.RemixReward) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reward.ID = uuid.NewString()
	reward.CreatedAt = r.s.now()
	r.s.rewards = append(r.s.rewards, *reward)
	return nil
}

func (r rewardRepo) ListByRemixJob(ctx context.Context, remixJobID string) ([]domain.RemixReward, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.RemixReward
	for _, rw := range r.s.rewards {
		if rw.RemixJobID == remixJobID {
			out = append(out, rw)
		}
	}
	return out, nil
}

func matches(j *domain.Job, f domain.JobFilter) bool {
	if f.UserID != "" && j.UserID != f.UserID {
		return false
	}
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if !f.CreatedBefore.IsZero() && !j.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	if f.After != nil && !f.After.Before(*j) {
		return false
	}
	return true
}

func applyJobPatch(j *domain.Job, p domain.JobPatch) {
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.TaskID != nil {
		j.TaskID = *p.TaskID
	}
	if p.ResultURL != nil {
		j.ResultURL = *p.ResultURL
	}
	if p.ErrorMessage != nil {
		j.ErrorMessage = *p.ErrorMessage
	}
	if p.RemixCount != nil {
		j.RemixCount = *p.RemixCount
	}
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		j.CompletedAt = &at
	}
}

func cloneJob(j *domain.Job) domain.Job {
	out := *j
	out.InputImages = append([]string(nil), j.InputImages...)
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

func sortJobs(jobs []domain.Job) {
	sort.SliceStable(jobs, func(i, k int) bool {
		if jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
}

var (
	_ domain.JobRepository          = jobRepo{}
	_ domain.UserRepository         = userRepo{}
	_ domain.ContestEntryRepository = contestRepo{}
	_ domain.RemixRewardRepository  = rewardRepo{}
)
