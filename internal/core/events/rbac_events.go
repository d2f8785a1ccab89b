package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRoleCreated         = "role.created"
	EventTypeRoleUpdated         = "role.updated"
	EventTypeRoleDeleted         = "role.deleted"
	EventTypeUserRolesAssigned   = "user.roles_assigned"
	EventTypeUserRoleRemoved     = "user.role_removed"
	EventTypePermissionsSynced   = "permissions.synced"
	EventTypePermissionToggled   = "permission.toggled"
	EventTypeAuthorizationDenied = "authorization.denied"
	EventTypeUserCreated         = "user.created"
)

// RoleEventTypes lists every event that changes a Role->Permission mapping.
var RoleEventTypes = []string{EventTypeRoleCreated, EventTypeRoleUpdated, EventTypeRoleDeleted}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type RoleChangedEvent struct {
	BaseEvent
	RoleID  int64  `json:"role_id"`
	Name    string `json:"name"`
	ActorID *int64 `json:"actor_id,omitempty"`
}

func NewRoleChangedEvent(eventType string, roleID int64, name string, actorID *int64) *RoleChangedEvent {
	return &RoleChangedEvent{
		BaseEvent: newBase(eventType, map[string]interface{}{
			"role_id":  roleID,
			"name":     name,
			"actor_id": actorID,
		}),
		RoleID:  roleID,
		Name:    name,
		ActorID: actorID,
	}
}

type UserRolesAssignedEvent struct {
	BaseEvent
	UserID        int64   `json:"user_id"`
	RoleIDs       []int64 `json:"role_ids"`
	AdminEnforced bool    `json:"admin_enforced"`
	ActorID       *int64  `json:"actor_id,omitempty"`
}

func NewUserRolesAssignedEvent(userID int64, roleIDs []int64, adminEnforced bool, actorID *int64) *UserRolesAssignedEvent {
	return &UserRolesAssignedEvent{
		BaseEvent: newBase(EventTypeUserRolesAssigned, map[string]interface{}{
			"user_id":        userID,
			"role_ids":       roleIDs,
			"admin_enforced": adminEnforced,
			"actor_id":       actorID,
		}),
		UserID:        userID,
		RoleIDs:       roleIDs,
		AdminEnforced: adminEnforced,
		ActorID:       actorID,
	}
}

type UserRoleRemovedEvent struct {
	BaseEvent
	UserID  int64  `json:"user_id"`
	RoleID  int64  `json:"role_id"`
	ActorID *int64 `json:"actor_id,omitempty"`
}

func NewUserRoleRemovedEvent(userID, roleID int64, actorID *int64) *UserRoleRemovedEvent {
	return &UserRoleRemovedEvent{
		BaseEvent: newBase(EventTypeUserRoleRemoved, map[string]interface{}{
			"user_id":  userID,
			"role_id":  roleID,
			"actor_id": actorID,
		}),
		UserID:  userID,
		RoleID:  roleID,
		ActorID: actorID,
	}
}

type UserCreatedEvent struct {
	BaseEvent
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	ActorID *int64 `json:"actor_id,omitempty"`
}

func NewUserCreatedEvent(userID int64, email string, actorID *int64) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseEvent: newBase(EventTypeUserCreated, map[string]interface{}{
			"user_id":  userID,
			"email":    email,
			"actor_id": actorID,
		}),
		UserID:  userID,
		Email:   email,
		ActorID: actorID,
	}
}

type PermissionsSyncedEvent struct {
	BaseEvent
	Added     int    `json:"added"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Errors    int    `json:"errors"`
	Source    string `json:"source"`
}

func NewPermissionsSyncedEvent(added, updated, unchanged, errs int, source string) *PermissionsSyncedEvent {
	return &PermissionsSyncedEvent{
		BaseEvent: newBase(EventTypePermissionsSynced, map[string]interface{}{
			"added":     added,
			"updated":   updated,
			"unchanged": unchanged,
			"errors":    errs,
			"source":    source,
		}),
		Added:     added,
		Updated:   updated,
		Unchanged: unchanged,
		Errors:    errs,
		Source:    source,
	}
}

type PermissionToggledEvent struct {
	BaseEvent
	Code    string `json:"code"`
	Active  bool   `json:"active"`
	ActorID *int64 `json:"actor_id,omitempty"`
}

func NewPermissionToggledEvent(code string, active bool, actorID *int64) *PermissionToggledEvent {
	return &PermissionToggledEvent{
		BaseEvent: newBase(EventTypePermissionToggled, map[string]interface{}{
			"code":     code,
			"active":   active,
			"actor_id": actorID,
		}),
		Code:    code,
		Active:  active,
		ActorID: actorID,
	}
}

type AuthorizationDeniedEvent struct {
	BaseEvent
	UserID     int64  `json:"user_id"`
	Permission string `json:"permission"`
	Method     string `json:"method"`
	Path       string `json:"path"`
}

func NewAuthorizationDeniedEvent(userID int64, permission, method, path string) *AuthorizationDeniedEvent {
	return &AuthorizationDeniedEvent{
		BaseEvent: newBase(EventTypeAuthorizationDenied, map[string]interface{}{
			"user_id":    userID,
			"permission": permission,
			"method":     method,
			"path":       path,
		}),
		UserID:     userID,
		Permission: permission,
		Method:     method,
		Path:       path,
	}
}
