// Package sqlite is a single-file Ledger for deployments without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	_ "modernc.org/sqlite"

	"mediagen/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
  remix_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS contest_entries (
  id TEXT PRIMARY KEY,
  remix_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS generation_jobs (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  prompt TEXT NOT NULL,
  model TEXT NOT NULL,
  media_type TEXT NOT NULL,
  status TEXT NOT NULL,
  cost INTEGER,
  aspect_ratio TEXT NOT NULL DEFAULT '',
  resolution TEXT NOT NULL DEFAULT '',
  input_images TEXT NOT NULL DEFAULT '[]',
  parent_id TEXT,
  contest_entry_id TEXT,
  task_id TEXT,
  result_url TEXT,
  error_message TEXT,
  remix_count INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  completed_at INTEGER
);
CREATE INDEX IF NOT EXISTS generation_jobs_pending ON generation_jobs (status, created_at);
CREATE TABLE IF NOT EXISTS remix_rewards (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  source_job_id TEXT NOT NULL,
  remix_job_id TEXT NOT NULL UNIQUE,
  amount INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
`

const jobColumns = `id, user_id, prompt, model, media_type, status, cost, aspect_ratio, resolution,
  input_images, coalesce(parent_id, ''), coalesce(contest_entry_id, ''), coalesce(task_id, ''),
  coalesce(result_url, ''), coalesce(error_message, ''), remix_count, created_at, completed_at`

// Store owns the database handle.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens path and creates the schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps read-modify-write sequences from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database file is usable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

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
func (s *Store) PutUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, balance, remix_count) VALUES (?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET balance = excluded.balance, remix_count = excluded.remix_count`,
		u.ID, u.Balance, u.RemixCount)
	return err
}

// PutContestEntry inserts or replaces a contest entry.
func (s *Store) PutContestEntry(ctx context.Context, e domain.ContestEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contest_entries (id, remix_count) VALUES (?, ?)
         ON CONFLICT (id) DO UPDATE SET remix_count = excluded.remix_count`,
		e.ID, e.RemixCount)
	return err
}

type jobRepo struct{ s *Store }

func (r jobRepo) Create(ctx context.Context, job *domain.Job) error {
	job.ID = uuid.NewString()
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	if job.MediaType == "" {
		job.MediaType = domain.MediaTypeImage
	}
	job.CreatedAt = r.s.now().UTC()
	images, err := json.Marshal(nonNil(job.InputImages))
	if err != nil {
		return err
	}
	var cost any
	if c, ok := job.Cost.Get(); ok {
		cost = c
	}
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO generation_jobs (id, user_id, prompt, model, media_type, status, cost, aspect_ratio,
           resolution, input_images, parent_id, contest_entry_id, task_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, nullif(?, ''), nullif(?, ''), nullif(?, ''), ?)`,
		job.ID, job.UserID, job.Prompt, job.Model, string(job.MediaType), string(job.Status), cost,
		job.AspectRatio, job.Resolution, string(images), job.ParentID, job.ContestEntryID, job.TaskID,
		job.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r jobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r jobRepo) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	where, args := jobWhere(filter)
	query := `SELECT ` + jobColumns + ` FROM generation_jobs` + where + ` ORDER BY created_at, id LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func (r jobRepo) Update(ctx context.Context, id string, patch domain.JobPatch) error {
	set, args := jobSet(patch)
	if set == "" {
		return nil
	}
	res, err := r.s.db.ExecContext(ctx, `UPDATE generation_jobs SET `+set+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r jobRepo) Transition(ctx context.Context, id string, from domain.JobStatus, patch domain.JobPatch) (bool, error) {
	set, args := jobSet(patch)
	if set == "" {
		return false, nil
	}
	res, err := r.s.db.ExecContext(ctx,
		`UPDATE generation_jobs SET `+set+` WHERE id = ? AND status = ?`, append(args, id, string(from))...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r jobRepo) PendingUserIDs(ctx context.Context, filter domain.JobFilter) ([]string, error) {
	filter.UserID = ""
	filter.Status = domain.JobStatusPending
	filter.After = nil
	where, args := jobWhere(filter)
	rows, err := r.s.db.QueryContext(ctx,
		`SELECT user_id FROM generation_jobs`+where+` AND user_id > ? GROUP BY user_id ORDER BY user_id LIMIT ?`,
		append(args, filter.AfterUserID, limitOrDefault(filter.Limit))...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.s.db.QueryRowContext(ctx, `SELECT id, balance, remix_count FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Balance, &u.RemixCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r userRepo) Update(ctx context.Context, id string, patch domain.UserPatch) error {
	res, err := r.s.db.ExecContext(ctx,
		`UPDATE users SET balance = coalesce(?, balance), remix_count = coalesce(?, remix_count) WHERE id = ?`,
		intArg(patch.Balance), intArg(patch.RemixCount), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type contestRepo struct{ s *Store }

func (r contestRepo) GetByID(ctx context.Context, id string) (*domain.ContestEntry, error) {
	var e domain.ContestEntry
	err := r.s.db.QueryRowContext(ctx, `SELECT id, remix_count FROM contest_entries WHERE id = ?`, id).
		Scan(&e.ID, &e.RemixCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r contestRepo) SetRemixCount(ctx context.Context, id string, count int) error {
	res, err := r.s.db.ExecContext(ctx, `UPDATE contest_entries SET remix_count = ? WHERE id = ?`, count, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rewardRepo struct{ s *Store }

func (r rewardRepo) Create(ctx context.Context, reward *domain.RemixReward) error {
	reward.ID = uuid.NewString()
	reward.CreatedAt = r.s.now().UTC()
	_, err := r.s.db.ExecContext(ctx,
		`INSERT INTO remix_rewards (id, user_id, source_job_id, remix_job_id, amount, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		reward.ID, reward.UserID, reward.SourceJobID, reward.RemixJobID, reward.Amount, reward.CreatedAt.UnixMilli())
	return err
}

func (r rewardRepo) ListByRemixJob(ctx context.Context, remixJobID string) ([]domain.RemixReward, error) {
	rows, err := r.s.db.QueryContext(ctx,
		`SELECT id, user_id, source_job_id, remix_job_id, amount, created_at FROM remix_rewards WHERE remix_job_id = ?`,
		remixJobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.RemixReward
	for rows.Next() {
		var (
			rw domain.RemixReward
			ms int64
		)
		if err := rows.Scan(&rw.ID, &rw.UserID, &rw.SourceJobID, &rw.RemixJobID, &rw.Amount, &ms); err != nil {
			return nil, err
		}
		rw.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, rw)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.Job, error) {
	var (
		j                 domain.Job
		mediaType, status string
		cost, completedMs sql.NullInt64
		images            string
		createdMs         int64
	)
	if err := row.Scan(&j.ID, &j.UserID, &j.Prompt, &j.Model, &mediaType, &status, &cost, &j.AspectRatio,
		&j.Resolution, &images, &j.ParentID, &j.ContestEntryID, &j.TaskID, &j.ResultURL, &j.ErrorMessage,
		&j.RemixCount, &createdMs, &completedMs); err != nil {
		return nil, err
	}
	j.MediaType = domain.MediaType(mediaType)
	j.Status = domain.JobStatus(status)
	if cost.Valid {
		j.Cost = mo.Some(int(cost.Int64))
	}
	if images != "" {
		if err := json.Unmarshal([]byte(images), &j.InputImages); err != nil {
			return nil, fmt.Errorf("decode input images: %w", err)
		}
	}
	j.CreatedAt = time.UnixMilli(createdMs).UTC()
	if completedMs.Valid {
		at := time.UnixMilli(completedMs.Int64).UTC()
		j.CompletedAt = &at
	}
	return &j, nil
}

func jobWhere(f domain.JobFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.CreatedBefore.IsZero() {
		clauses = append(clauses, "created_at < ?")
		args = append(args, f.CreatedBefore.UnixMilli())
	}
	if f.After != nil {
		ms := f.After.CreatedAt.UnixMilli()
		clauses = append(clauses, "(created_at > ? OR (created_at = ? AND id > ?))")
		args = append(args, ms, ms, f.After.ID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func jobSet(p domain.JobPatch) (string, []any) {
	var (
		sets []string
		args []any
	)
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.TaskID != nil {
		sets = append(sets, "task_id = ?")
		args = append(args, *p.TaskID)
	}
	if p.ResultURL != nil {
		sets = append(sets, "result_url = ?")
		args = append(args, *p.ResultURL)
	}
	if p.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *p.ErrorMessage)
	}
	if p.RemixCount != nil {
		sets = append(sets, "remix_count = ?")
		args = append(args, *p.RemixCount)
	}
	if p.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, p.CompletedAt.UnixMilli())
	}
	return strings.Join(sets, ", "), args
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var (
	_ domain.JobRepository          = jobRepo{}
	_ domain.UserRepository         = userRepo{}
	_ domain.ContestEntryRepository = contestRepo{}
	_ domain.RemixRewardRepository  = rewardRepo{}
)
