// Package storage provides at-rest storage for serialized shortint
// ciphertexts, addressed by content hash.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Common errors.
var (
	ErrNotFound      = errors.New("ciphertext not found")
	ErrStorageFull   = errors.New("storage capacity exceeded")
	ErrInvalidHandle = errors.New("invalid ciphertext handle")
)

// Handle uniquely identifies a stored ciphertext. Two ciphertexts with the
// same serialized bytes share a handle, which makes stores idempotent.
type Handle string

// ComputeHandle derives the handle for a serialized ciphertext.
func ComputeHandle(data []byte) Handle {
	hash := sha256.Sum256(data)
	return Handle(hex.EncodeToString(hash[:]))
}

// Valid reports whether the handle has the expected shape.
func (h Handle) Valid() bool {
	if len(h) != 2*sha256.Size {
		return false
	}
	_, err := hex.DecodeString(string(h))
	return err == nil
}

// Storage is the interface every ciphertext store implements.
type Storage interface {
	// Store saves a serialized ciphertext and returns its handle.
	Store(ctx context.Context, data []byte) (Handle, error)
	// Load retrieves a serialized ciphertext by handle.
	Load(ctx context.Context, handle Handle) ([]byte, error)
	// Delete removes a ciphertext.
	Delete(ctx context.Context, handle Handle) error
	// Exists checks whether a ciphertext is present.
	Exists(ctx context.Context, handle Handle) (bool, error)
	// Close releases the store's resources.
	Close() error
}

// ========== In-memory backend ==========

// MemoryStorage keeps ciphertexts in process memory, bounded by a byte
// capacity. Suitable for tests and single-process setups.
type MemoryStorage struct {
	mu       sync.RWMutex
	data     map[Handle][]byte
	capacity int64
	size     int64
}

// NewMemoryStorage creates an in-memory store holding up to capacityMB
// megabytes of serialized ciphertexts.
func NewMemoryStorage(capacityMB int64) *MemoryStorage {
	return &MemoryStorage{
		data:     make(map[Handle][]byte),
		capacity: capacityMB * 1024 * 1024,
	}
}

func (s *MemoryStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := ComputeHandle(data)
	if _, exists := s.data[handle]; exists {
		return handle, nil
	}

	if s.size+int64(len(data)) > s.capacity {
		return "", ErrStorageFull
	}

	s.data[handle] = append([]byte(nil), data...)
	s.size += int64(len(data))

	return handle, nil
}

func (s *MemoryStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	if !handle.Valid() {
		return nil, ErrInvalidHandle
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[handle]
	if !exists {
		return nil, ErrNotFound
	}

	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, handle Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, exists := s.data[handle]
	if !exists {
		return ErrNotFound
	}

	s.size -= int64(len(data))
	delete(s.data, handle)
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[handle]
	return exists, nil
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil
	s.size = 0
	return nil
}

// ========== File backend ==========

// FileStorage persists ciphertexts under a base directory, sharded by the
// leading handle bytes, with atomic temp-file writes.
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates a file-backed store rooted at baseDir.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{baseDir: baseDir}, nil
}

func (s *FileStorage) path(handle Handle) string {
	h := string(handle)
	// Shard by the first 2 chars to avoid one huge flat directory.
	return filepath.Join(s.baseDir, h[:2], h)
}

func (s *FileStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	path := s.path(handle)

	if _, err := os.Stat(path); err == nil {
		return handle, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create shard dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	return handle, nil
}

func (s *FileStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	if !handle.Valid() {
		return nil, ErrInvalidHandle
	}

	data, err := os.ReadFile(s.path(handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (s *FileStorage) Delete(ctx context.Context, handle Handle) error {
	if !handle.Valid() {
		return ErrInvalidHandle
	}

	if err := os.Remove(s.path(handle)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *FileStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	if !handle.Valid() {
		return false, ErrInvalidHandle
	}

	_, err := os.Stat(s.path(handle))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat file: %w", err)
}

func (s *FileStorage) Close() error {
	return nil
}

// ========== Redis backend ==========

// RedisStorage keeps ciphertexts in Redis with a per-entry TTL, for setups
// where workers and producers do not share a filesystem.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStorage creates a Redis-backed store. Entries expire after ttl;
// a zero ttl keeps them until deleted.
func NewRedisStorage(cfg RedisConfig, ttl time.Duration) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStorage{
		client: client,
		prefix: "shortint:ct:",
		ttl:    ttl,
	}, nil
}

func (s *RedisStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	if err := s.client.Set(ctx, s.prefix+string(handle), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store ciphertext: %w", err)
	}
	return handle, nil
}

func (s *RedisStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	if !handle.Valid() {
		return nil, ErrInvalidHandle
	}

	data, err := s.client.Get(ctx, s.prefix+string(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load ciphertext: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Delete(ctx context.Context, handle Handle) error {
	if !handle.Valid() {
		return ErrInvalidHandle
	}

	n, err := s.client.Del(ctx, s.prefix+string(handle)).Result()
	if err != nil {
		return fmt.Errorf("delete ciphertext: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	if !handle.Valid() {
		return false, ErrInvalidHandle
	}

	n, err := s.client.Exists(ctx, s.prefix+string(handle)).Result()
	if err != nil {
		return false, fmt.Errorf("check ciphertext: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
