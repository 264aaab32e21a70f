package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"deal-analyzer-client/internal/common/config"
	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/http"
	"deal-analyzer-client/internal/common/storage"
	"deal-analyzer-client/internal/models"
)

// TokenStore persists the access/refresh pair between runs. Load on an empty
// store returns zero Tokens and no error.
type TokenStore interface {
	Load(ctx context.Context) (models.Tokens, error)
	Save(ctx context.Context, t models.Tokens) error
	Clear(ctx context.Context) error
}

// NewTokenStore builds the store selected by cfg.TokenStore.
func NewTokenStore(cfg config.SessionConfig, redisCfg config.RedisConfig) (TokenStore, error) {
	switch cfg.TokenStore {
	case config.TokenStoreRedis:
		return NewRedisTokenStore(storage.NewRedis(redisCfg), cfg.RedisKey), nil
	case config.TokenStoreFile, "":
		return NewFileTokenStore(cfg.TokenFile), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
}

// Bearer exposes the stored access token to the transport. It is read on every
// request so a login or logout takes effect immediately.
func Bearer(store TokenStore) http.TokenSource {
	return bearer{store: store}
}

type bearer struct {
	store TokenStore
}

func (b bearer) AccessToken(ctx context.Context) (string, error) {
	t, err := b.store.Load(ctx)
	if err != nil {
		return "", err
	}
	return t.Access, nil
}

// ==========================
// File store
// ==========================

type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Load(_ context.Context) (models.Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t models.Tokens
	raw, err := os.ReadFile(s.path)
	if stderrors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, errors.NewTokenStoreError(err)
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return models.Tokens{}, errors.NewTokenStoreError(fmt.Errorf("decode %s: %w", s.path, err))
	}
	return t, nil
}

// Save writes through a temp file so a crash never leaves half a token file.
func (s *FileTokenStore) Save(_ context.Context, t models.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(t)
	if err != nil {
		return errors.NewTokenStoreError(err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.NewTokenStoreError(err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.NewTokenStoreError(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return errors.NewTokenStoreError(err)
	}
	return nil
}

func (s *FileTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return errors.NewTokenStoreError(err)
	}
	return nil
}

// ==========================
// Redis store
// ==========================

type RedisTokenStore struct {
	client *storage.RedisClient
	key    string
}

func NewRedisTokenStore(client *storage.RedisClient, key string) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: key}
}

func (s *RedisTokenStore) Load(ctx context.Context) (models.Tokens, error) {
	var t models.Tokens
	err := s.client.GetJSON(ctx, s.key, &t)
	if stderrors.Is(err, storage.ErrNotFound) {
		return models.Tokens{}, nil
	}
	if err != nil {
		return models.Tokens{}, errors.NewTokenStoreError(err)
	}
	return t, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, t models.Tokens) error {
	if err := s.client.SetJSON(ctx, s.key, t, 0); err != nil {
		return errors.NewTokenStoreError(err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key); err != nil {
		return errors.NewTokenStoreError(err)
	}
	return nil
}

func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

// ==========================
// Memory store
// ==========================

// MemoryTokenStore keeps tokens for the life of the process.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens models.Tokens
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(context.Context) (models.Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, t models.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
	return nil
}

func (s *MemoryTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = models.Tokens{}
	return nil
}
