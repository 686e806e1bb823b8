// Package passlock makes sure at most one scan pass runs at a time.
package passlock

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when another pass holds the lock.
var ErrBusy = errors.New("pass already running")

// Locker never blocks: TryLock returns ErrBusy right away when the lock is taken.
type Locker interface {
	TryLock(ctx context.Context) (release func(), err error)
}

// Local is an in-process lock.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local { return &Local{} }

func (l *Local) TryLock(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrBusy
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}
