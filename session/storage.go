package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/b13-niass/esign/db"
	"gorm.io/gorm"
)

// Persist strategies for the access token.
const (
	StrategyCookies = "cookies"
	StrategyLocal   = "local"
	StrategySession = "session"
)

// Storage is a string key/value store the access token is persisted in.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// NormalizeStrategy maps accepted spellings (including the browser names
// localStorage / sessionStorage) to one of the Strategy constants.
func NormalizeStrategy(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cookie", "cookies":
		return StrategyCookies, nil
	case "local", "localstorage":
		return StrategyLocal, nil
	case "session", "sessionstorage", "memory":
		return StrategySession, nil
	}
	return "", fmt.Errorf("unknown access token persist strategy %q", s)
}

// NewStorage returns the Storage for the given strategy.
func NewStorage(strategy string, gdb *gorm.DB) (Storage, error) {
	s, err := NormalizeStrategy(strategy)
	if err != nil {
		return nil, err
	}
	switch s {
	case StrategyLocal:
		return NewLocalStorage(db.NewLocalRepository(gdb)), nil
	case StrategySession:
		return NewMemoryStorage(), nil
	default:
		return NewCookieStorage(db.NewCookieRepository(gdb)), nil
	}
}

// CookieStorage keeps values in the persisted cookie jar.
type CookieStorage struct {
	repo db.CookieRepository
}

func NewCookieStorage(repo db.CookieRepository) *CookieStorage {
	return &CookieStorage{repo: repo}
}

func (s *CookieStorage) GetItem(ctx context.Context, key string) (string, error) {
	c, err := s.repo.Get(ctx, key)
	if err != nil || c == nil {
		return "", err
	}
	if c.Expired(now()) {
		return "", nil
	}
	return c.Value, nil
}

func (s *CookieStorage) SetItem(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, &db.Cookie{Name: key, Value: value})
}

func (s *CookieStorage) RemoveItem(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

// LocalStorage keeps values in the durable key/value table.
type LocalStorage struct {
	repo db.LocalRepository
}

func NewLocalStorage(repo db.LocalRepository) *LocalStorage {
	return &LocalStorage{repo: repo}
}

func (s *LocalStorage) GetItem(ctx context.Context, key string) (string, error) {
	item, err := s.repo.Get(ctx, key)
	if err != nil || item == nil {
		return "", err
	}
	return item.Value, nil
}

func (s *LocalStorage) SetItem(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, &db.LocalItem{Key: key, Value: value})
}

func (s *LocalStorage) RemoveItem(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

// MemoryStorage lives for the lifetime of the process only.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (s *MemoryStorage) GetItem(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[key], nil
}

func (s *MemoryStorage) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
