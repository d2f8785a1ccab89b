package audit

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	auditDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/member-management/internal/core/events"
)

const (
	EntityRole       = "role"
	EntityUser       = "user"
	EntityPermission = "permission"
	EntityCatalog    = "catalog"
)

// Entry is one persisted record of an authorization-relevant change or denial.
type Entry struct {
	ID         string          `json:"id"`
	EventID    string          `json:"eventId"`
	Action     string          `json:"action"`
	ActorID    *int64          `json:"actorId,omitempty"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// EntryFromEvent maps a bus event onto an audit entry. Unknown event types
// are recorded with an empty entity.
func EntryFromEvent(evt events.Event) (*Entry, error) {
	details, err := json.Marshal(evt.Payload())
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:        uuid.New().String(),
		EventID:   evt.EventID(),
		Action:    evt.EventType(),
		Details:   details,
		CreatedAt: evt.OccurredAt(),
	}

	switch v := evt.(type) {
	case *events.RoleChangedEvent:
		e.EntityType, e.EntityID, e.ActorID = EntityRole, itoa(v.RoleID), v.ActorID
	case *events.UserRolesAssignedEvent:
		e.EntityType, e.EntityID, e.ActorID = EntityUser, itoa(v.UserID), v.ActorID
	case *events.UserRoleRemovedEvent:
		e.EntityType, e.EntityID, e.ActorID = EntityUser, itoa(v.UserID), v.ActorID
	case *events.UserCreatedEvent:
		e.EntityType, e.EntityID, e.ActorID = EntityUser, itoa(v.UserID), v.ActorID
	case *events.AuthorizationDeniedEvent:
		actor := v.UserID
		e.EntityType, e.EntityID, e.ActorID = EntityPermission, v.Permission, &actor
	case *events.PermissionToggledEvent:
		e.EntityType, e.EntityID, e.ActorID = EntityPermission, v.Code, v.ActorID
	case *events.PermissionsSyncedEvent:
		e.EntityType, e.EntityID = EntityCatalog, v.Source
	}
	return e, nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (e *Entry) ToDataModel() *auditDatamodel.AuditLog {
	return &auditDatamodel.AuditLog{
		ID:         e.ID,
		EventID:    e.EventID,
		Action:     e.Action,
		ActorID:    e.ActorID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    string(e.Details),
		CreatedAt:  e.CreatedAt,
	}
}

func FromDataModel(row *auditDatamodel.AuditLog) *Entry {
	e := &Entry{
		ID:         row.ID,
		EventID:    row.EventID,
		Action:     row.Action,
		ActorID:    row.ActorID,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		CreatedAt:  row.CreatedAt,
	}
	if row.Details != "" {
		e.Details = json.RawMessage(row.Details)
	}
	return e
}
