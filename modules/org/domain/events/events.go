package events

import (
	"time"

	"github.com/google/uuid"
)

// Change types published on the event bus.
const (
	AssignmentCreated    = "assignment.created"
	AssignmentModified   = "assignment.modified"
	AssignmentTerminated = "assignment.terminated"
	UnitMoved            = "unit.moved"
	UnitCreated          = "unit.created"
	UnitDeleted          = "unit.deleted"
)

// AssignmentEventV1 is emitted after an assignment transaction commits.
type AssignmentEventV1 struct {
	ChangeType string
	LineageID  uuid.UUID
	PersonID   uuid.UUID
	UnitID     uuid.UUID
	Version    int
	Effective  time.Time
	OccurredAt time.Time
}

// UnitEventV1 is emitted after a hierarchy or catalog change commits.
type UnitEventV1 struct {
	ChangeType  string
	UnitID      uuid.UUID
	OldParentID *uuid.UUID
	NewParentID *uuid.UUID
	OccurredAt  time.Time
}
