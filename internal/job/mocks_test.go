package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// mockJob is a Job whose behavior is set per test
type mockJob struct {
	id        uuid.UUID
	executeFn func(ctx context.Context) error
}

func newMockJob(fn func(ctx context.Context) error) *mockJob {
	return &mockJob{id: uuid.New(), executeFn: fn}
}

func (j *mockJob) ID() uuid.UUID          { return j.id }
func (j *mockJob) Type() string           { return "mock" }
func (j *mockJob) Payload() []byte        { return []byte(`{"mock":true}`) }
func (j *mockJob) RequestedBy() uuid.UUID { return uuid.Nil }

func (j *mockJob) Execute(ctx context.Context) error {
	if j.executeFn == nil {
		return nil
	}
	return j.executeFn(ctx)
}

// memStore is an in-memory Store
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uuid.UUID]*Record)}
}

func (s *memStore) SaveJob(_ context.Context, j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	now := time.Now()
	s.records[j.ID()] = &Record{
		ID: j.ID(), Type: j.Type(), Payload: json.RawMessage(j.Payload()),
		Status: StatusPending, RequestedBy: j.RequestedBy(), CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (s *memStore) put(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

func (s *memStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status Status, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return store.ErrJobNotFound
	}
	rec.Status = status
	rec.ErrorMessage = msg
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) ClaimJob(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return false, store.ErrJobNotFound
	}
	if rec.Status != StatusPending {
		return false, nil
	}
	rec.Status = StatusProcessing
	rec.ErrorMessage = ""
	rec.UpdatedAt = time.Now()
	return true, nil
}

func (s *memStore) GetJob(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) status(id uuid.UUID) Status {
	rec, err := s.GetJob(context.Background(), id)
	if err != nil {
		return ""
	}
	return rec.Status
}

func (s *memStore) byStatus(status Status, olderThan time.Duration) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(rec.UpdatedAt) < olderThan {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out
}

func (s *memStore) GetPendingJobs(context.Context) ([]*Record, error) {
	return s.byStatus(StatusPending, 0), nil
}

func (s *memStore) GetProcessingJobs(_ context.Context, olderThan time.Duration) ([]*Record, error) {
	return s.byStatus(StatusProcessing, olderThan), nil
}

func (s *memStore) WithTx(*sql.Tx) Store { return s }

// rebuildFunc adapts a function to Rebuilder
type rebuildFunc func(rec *Record) (Job, error)

func (f rebuildFunc) Rebuild(rec *Record) (Job, error) { return f(rec) }
