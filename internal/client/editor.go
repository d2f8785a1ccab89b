package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/frahmantamala/member-management/internal/assignment"
	"github.com/frahmantamala/member-management/internal/role"
)

var ErrChangeSettled = errors.New("change already committed or rolled back")

// RoleAssigner is the server call behind a role edit.
type RoleAssigner interface {
	AssignRoles(ctx context.Context, token string, userID int64, roleIDs []int64) (*assignment.Result, error)
}

// Change is a tentative role edit waiting for the server's answer.
type Change struct {
	UserID    int64
	previous  []role.Ref
	tentative []role.Ref
	settled   bool
}

// RoleEditor keeps a local view of users' roles and applies edits in two
// phases: a tentative local apply, then commit or rollback on the server's
// answer.
type RoleEditor struct {
	api     RoleAssigner
	session *Session

	mu      sync.Mutex
	users   map[int64][]role.Ref
	notices []string
}

func NewRoleEditor(api RoleAssigner, session *Session) *RoleEditor {
	return &RoleEditor{
		api:     api,
		session: session,
		users:   make(map[int64][]role.Ref),
	}
}

// Load seeds the local view with the authoritative roles of a user.
func (e *RoleEditor) Load(userID int64, refs []role.Ref) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.users[userID] = cloneRefs(refs)
}

func (e *RoleEditor) Roles(userID int64) []role.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneRefs(e.users[userID])
}

// Begin applies roleIDs to the local view and returns the pending change.
func (e *RoleEditor) Begin(userID int64, roleIDs []int64) *Change {
	e.mu.Lock()
	defer e.mu.Unlock()

	tentative := make([]role.Ref, 0, len(roleIDs))
	for _, id := range role.UniqueIDs(roleIDs) {
		tentative = append(tentative, role.Ref{ID: id})
	}

	c := &Change{
		UserID:    userID,
		previous:  cloneRefs(e.users[userID]),
		tentative: tentative,
	}
	e.users[userID] = cloneRefs(tentative)
	return c
}

// Commit sends the change to the server. On success the local view takes the
// server's answer unless a newer Begin replaced it; on failure the tentative apply is undone and a notice is
// queued. Editing the session user refreshes the session grants, which makes
// any attached guard re-evaluate.
func (e *RoleEditor) Commit(ctx context.Context, c *Change) (*assignment.Result, error) {
	e.mu.Lock()
	if c.settled {
		e.mu.Unlock()
		return nil, ErrChangeSettled
	}
	c.settled = true
	e.mu.Unlock()

	res, err := e.api.AssignRoles(ctx, e.session.Token(), c.UserID, role.RefIDs(c.tentative))
	if err != nil {
		e.rollback(c, err)
		return nil, err
	}

	e.mu.Lock()
	// a newer edit of the same user keeps its tentative view
	if sameIDs(e.users[c.UserID], c.tentative) {
		e.users[c.UserID] = cloneRefs(res.Roles)
	}
	e.notices = append(e.notices, res.Notices...)
	e.mu.Unlock()

	if c.UserID == e.session.UserID() {
		if err := e.session.Refresh(ctx); err != nil {
			e.notice(fmt.Sprintf("roles saved but permissions could not be refreshed: %v", err))
		}
	}
	return res, nil
}

// Apply runs Begin and Commit in one step.
func (e *RoleEditor) Apply(ctx context.Context, userID int64, roleIDs []int64) (*assignment.Result, error) {
	return e.Commit(ctx, e.Begin(userID, roleIDs))
}

// Notices drains the queued user-facing messages.
func (e *RoleEditor) Notices() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.notices
	e.notices = nil
	return out
}

func (e *RoleEditor) rollback(c *Change, cause error) {
	e.mu.Lock()
	// a newer edit of the same user wins over this rollback
	if sameIDs(e.users[c.UserID], c.tentative) {
		e.users[c.UserID] = cloneRefs(c.previous)
	}
	e.mu.Unlock()

	e.notice(fmt.Sprintf("role change for user %d was not saved: %s", c.UserID, describe(cause)))
}

func (e *RoleEditor) notice(msg string) {
	e.mu.Lock()
	e.notices = append(e.notices, msg)
	e.mu.Unlock()
}

func describe(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func cloneRefs(refs []role.Ref) []role.Ref {
	if refs == nil {
		return nil
	}
	return append([]role.Ref(nil), refs...)
}

func sameIDs(a, b []role.Ref) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
