package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/circuitbreaker"
	"github.com/studyhall-ai/orchestrator/internal/metrics"
)

// Store persists session memory in Redis under session:<token> keys.
//
// The TTL is armed exactly once, when the record is created at login.
// Per-turn write-backs overwrite the value with KEEPTTL so an idle session
// expires on the login clock, not the activity clock. Writes are
// last-write-wins; the store is the sole consistency boundary between
// concurrent requests on the same token.
type Store struct {
	client *circuitbreaker.RedisWrapper
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore connects to Redis and verifies connectivity.
func NewStore(addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*Store, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	client := circuitbreaker.NewRedisWrapper(redisClient, circuitbreaker.DefaultConfig(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl, logger: logger}, nil
}

// CreateStudent writes an empty student memory record, arming the TTL.
func (s *Store) CreateStudent(ctx context.Context, token string) (*StudentMemory, error) {
	mem := &StudentMemory{Conversation: []Turn{}}
	if err := s.write(ctx, token, mem, s.ttl); err != nil {
		return nil, err
	}
	metrics.SessionsCreated.WithLabelValues("student").Inc()
	s.logger.Info("Created student session memory", zap.String("token", token))
	return mem, nil
}

// CreateTeacher writes an empty teacher memory record, arming the TTL.
func (s *Store) CreateTeacher(ctx context.Context, token string) (*TeacherMemory, error) {
	mem := &TeacherMemory{Conversation: []Turn{}}
	if err := s.write(ctx, token, mem, s.ttl); err != nil {
		return nil, err
	}
	metrics.SessionsCreated.WithLabelValues("teacher").Inc()
	s.logger.Info("Created teacher session memory", zap.String("token", token))
	return mem, nil
}

// GetStudent loads a student memory record.
func (s *Store) GetStudent(ctx context.Context, token string) (*StudentMemory, error) {
	data, err := s.read(ctx, token)
	if err != nil {
		return nil, err
	}
	var mem StudentMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		return nil, fmt.Errorf("failed to unmarshal student memory: %w", err)
	}
	return &mem, nil
}

// GetTeacher loads a teacher memory record.
func (s *Store) GetTeacher(ctx context.Context, token string) (*TeacherMemory, error) {
	data, err := s.read(ctx, token)
	if err != nil {
		return nil, err
	}
	var mem TeacherMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		return nil, fmt.Errorf("failed to unmarshal teacher memory: %w", err)
	}
	return &mem, nil
}

// UpdateStudent overwrites a student memory record without re-arming the TTL.
func (s *Store) UpdateStudent(ctx context.Context, token string, mem *StudentMemory) error {
	return s.write(ctx, token, mem, redis.KeepTTL)
}

// UpdateTeacher overwrites a teacher memory record without re-arming the TTL.
func (s *Store) UpdateTeacher(ctx context.Context, token string, mem *TeacherMemory) error {
	return s.write(ctx, token, mem, redis.KeepTTL)
}

// Delete removes a session memory record (logout).
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session memory: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) read(ctx context.Context, token string) ([]byte, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session memory: %w", err)
	}
	metrics.MemoryReads.Inc()
	return data, nil
}

func (s *Store) write(ctx context.Context, token string, mem interface{}, expiration time.Duration) error {
	data, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("failed to marshal session memory: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(token), data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to save session memory: %w", err)
	}
	metrics.MemoryWrites.Inc()
	return nil
}

func sessionKey(token string) string {
	return "session:" + token
}
