package assignment

import (
	"sync"

	"github.com/frahmantamala/member-management/internal/role"
)

// Options tune a single assignment.
type Options struct {
	// SkipRefresh answers from the submitted role set instead of re-reading
	// the stored one.
	SkipRefresh bool
	// SkipNotify drops the notices from the result. The change is still
	// published on the bus.
	SkipNotify bool
	ActorID    *int64
}

// Result is the user projection returned after a role change.
type Result struct {
	ID      int64      `json:"id"`
	Roles   []role.Ref `json:"roles"`
	Notices []string   `json:"notices,omitempty"`
}

type BulkItem struct {
	UserID  int64  `json:"userId"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkResult aggregates per-user outcomes; a failed user never aborts the
// batch.
type BulkResult struct {
	Success int        `json:"success"`
	Failed  int        `json:"failed"`
	Details []BulkItem `json:"details"`
}

const AdminKeptNotice = "Admin role kept: the system administrator must always hold it"

// userLocks serializes role-set writes per user id.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

func (l *userLocks) lock(userID int64) (unlock func()) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
