package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/store"
)

// Store 进程内实现，用于测试和 store.driver=memory。
type Store struct {
	mu      sync.Mutex
	open    map[string]forecast.Forecast
	history []forecast.Forecast
	users   map[int64]store.User
	now     func() time.Time
}

func New() *Store {
	return &Store{
		open:  make(map[string]forecast.Forecast),
		users: make(map[int64]store.User),
		now:   time.Now,
	}
}

func key(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

func (s *Store) GetOpen(_ context.Context, symbol string) (*forecast.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.open[key(symbol)]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *Store) PutOpen(_ context.Context, f forecast.Forecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(f.Symbol)
	if _, ok := s.open[k]; ok {
		return store.ErrOpenForecastExists
	}
	s.open[k] = f
	return nil
}

func (s *Store) CloseForecast(_ context.Context, symbol string, hit forecast.Hit) (*forecast.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(symbol)
	f, ok := s.open[k]
	if !ok {
		return nil, nil
	}
	closed, err := f.Close(hit)
	if err != nil {
		return nil, err
	}
	delete(s.open, k)
	s.history = append(s.history, closed)
	return &closed, nil
}

func (s *Store) AllOpen(_ context.Context) ([]forecast.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]forecast.Forecast, 0, len(s.open))
	for _, f := range s.open {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AllHistory(_ context.Context) ([]forecast.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]forecast.Forecast(nil), s.history...), nil
}

func (s *Store) RecentHistory(_ context.Context, limit int) ([]forecast.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]forecast.Forecast, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.history[i])
	}
	return out, nil
}

func (s *Store) UpsertUser(_ context.Context, u store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if prev, ok := s.users[u.ChatID]; ok {
		u.CreatedAt = prev.CreatedAt
	} else {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ChatID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, chatID int64) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chatID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
