package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/orgledger/orgledger/modules/org/domain/events"
	"github.com/orgledger/orgledger/modules/org/services"
	"github.com/orgledger/orgledger/pkg/eventbus"
)

// OrgEventsHandler consumes the change events the services publish after a
// committed write: assignment transitions go to the audit log, unit changes
// additionally drop the hierarchy snapshot.
type OrgEventsHandler struct {
	log       *logrus.Logger
	hierarchy *services.HierarchyService
}

func RegisterOrgEventHandlers(bus eventbus.EventBus, log *logrus.Logger, hierarchy *services.HierarchyService) *OrgEventsHandler {
	h := &OrgEventsHandler{log: log, hierarchy: hierarchy}
	bus.Subscribe(h.onAssignmentEventV1)
	bus.Subscribe(h.onUnitEventV1)
	return h
}

func (h *OrgEventsHandler) onAssignmentEventV1(ev events.AssignmentEventV1) {
	if h == nil || h.log == nil {
		return
	}
	h.log.WithFields(logrus.Fields{
		"change":    ev.ChangeType,
		"lineage":   ev.LineageID,
		"person":    ev.PersonID,
		"unit":      ev.UnitID,
		"version":   ev.Version,
		"effective": ev.Effective.Format("2006-01-02"),
	}).Info("assignment changed")
}

func (h *OrgEventsHandler) onUnitEventV1(ev events.UnitEventV1) {
	if h == nil {
		return
	}
	if h.hierarchy != nil {
		h.hierarchy.InvalidateTree()
	}
	if h.log == nil {
		return
	}
	fields := logrus.Fields{
		"change": ev.ChangeType,
		"unit":   ev.UnitID,
	}
	if ev.OldParentID != nil {
		fields["old_parent"] = *ev.OldParentID
	}
	if ev.NewParentID != nil {
		fields["new_parent"] = *ev.NewParentID
	}
	h.log.WithFields(fields).Info("unit changed")
}
