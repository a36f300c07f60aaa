package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"nexusai-api/internal/logging"
)

// ErrNotFound is returned when a job id is unknown or has expired.
var ErrNotFound = errors.New("job not found")

// Store persists job records. Updates against a terminal job are silently
// ignored so a slow phase goroutine can never resurrect a failed job.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, jobID string) (*Record, error)

	// UpdateProgress moves a job to running at the given checkpoint.
	UpdateProgress(ctx context.Context, jobID string, phase Phase, progress int, message string) error

	// Complete marks the job completed at 100 with its result.
	Complete(ctx context.Context, jobID string, result *Result) error

	// Fail marks the job failed, recording the phase that broke.
	Fail(ctx context.Context, jobID string, phase Phase, errMsg string) error
}

// NewStore probes Redis once at startup and returns a Redis-backed store when
// it answers, falling back to process-local memory otherwise. The choice is
// made once: a Redis that dies later surfaces as errors, not as a silent
// switch to a second source of truth.
func NewStore(redisURL, redisAddr string, ttl time.Duration) Store {
	client := newRedisClient(redisURL, redisAddr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.S().Warnw("redis unreachable, job state is process-local and lost on restart",
			"addr", redisAddr, "error", err)
		_ = client.Close()
		return NewMemoryStore(ttl)
	}

	logging.S().Infow("job store backed by redis", "addr", redisAddr, "ttl", ttl)
	return NewRedisStore(client, ttl)
}

func newRedisClient(redisURL, redisAddr string) *redis.Client {
	if redisURL != "" {
		if opts, err := redis.ParseURL(redisURL); err == nil {
			return redis.NewClient(opts)
		}
		logging.S().Warnw("invalid REDIS_URL, falling back to REDIS_ADDR", "addr", redisAddr)
	}
	return redis.NewClient(&redis.Options{Addr: redisAddr})
}

// RedisStore keeps job records as JSON values with a per-key TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func jobKey(jobID string) string {
	return "nexusai:job:" + jobID
}

func (s *RedisStore) Create(ctx context.Context, rec *Record) error {
	return s.write(ctx, rec)
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*Record, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", jobID, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &rec, nil
}

func (s *RedisStore) UpdateProgress(ctx context.Context, jobID string, phase Phase, progress int, message string) error {
	return s.mutate(ctx, jobID, func(rec *Record) {
		rec.Status = StatusRunning
		rec.Phase = phase
		rec.Progress = progress
		rec.Message = message
	})
}

func (s *RedisStore) Complete(ctx context.Context, jobID string, result *Result) error {
	return s.mutate(ctx, jobID, func(rec *Record) {
		rec.Status = StatusCompleted
		rec.Progress = 100
		rec.Message = "Generation complete"
		rec.Result = result
	})
}

func (s *RedisStore) Fail(ctx context.Context, jobID string, phase Phase, errMsg string) error {
	return s.mutate(ctx, jobID, func(rec *Record) {
		rec.Status = StatusFailed
		rec.Phase = phase
		rec.Message = "Generation failed"
		rec.Error = errMsg
	})
}

func (s *RedisStore) mutate(ctx context.Context, jobID string, apply func(*Record)) error {
	rec, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() {
		return nil
	}
	apply(rec)
	return s.write(ctx, rec)
}

func (s *RedisStore) write(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", rec.JobID, err)
	}
	if err := s.client.Set(ctx, jobKey(rec.JobID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("write job %s: %w", rec.JobID, err)
	}
	return nil
}

// MemoryStore is the fallback when Redis is unavailable. Expired records are
// dropped on read.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	rec       *Record
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.UpdatedAt = s.now().UTC()
	s.records[rec.JobID] = &memoryEntry{rec: &cp, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (*Record, error) {
	s.mu.RLock()
	entry, ok := s.records[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.records, jobID)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	cp := *entry.rec
	return &cp, nil
}

func (s *MemoryStore) UpdateProgress(_ context.Context, jobID string, phase Phase, progress int, message string) error {
	return s.mutate(jobID, func(rec *Record) {
		rec.Status = StatusRunning
		rec.Phase = phase
		rec.Progress = progress
		rec.Message = message
	})
}

func (s *MemoryStore) Complete(_ context.Context, jobID string, result *Result) error {
	return s.mutate(jobID, func(rec *Record) {
		rec.Status = StatusCompleted
		rec.Progress = 100
		rec.Message = "Generation complete"
		rec.Result = result
	})
}

func (s *MemoryStore) Fail(_ context.Context, jobID string, phase Phase, errMsg string) error {
	return s.mutate(jobID, func(rec *Record) {
		rec.Status = StatusFailed
		rec.Phase = phase
		rec.Message = "Generation failed"
		rec.Error = errMsg
	})
}

func (s *MemoryStore) mutate(jobID string, apply func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[jobID]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.records, jobID)
		return ErrNotFound
	}
	if entry.rec.Status.Terminal() {
		return nil
	}
	apply(entry.rec)
	entry.rec.UpdatedAt = s.now().UTC()
	return nil
}
