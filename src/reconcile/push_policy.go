package reconcile

import (
	"www.github.com/Wanderer0074348/EventSync/src/config"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

type PushAction string

const (
	ActionNone   PushAction = "none"
	ActionInsert PushAction = "insert"
	ActionPatch  PushAction = "patch"
	ActionDelete PushAction = "delete"
)

type PushDecision struct {
	Forward bool
	Action  PushAction
	Reason  string
}

// PushPolicy decides whether a local mutation is forwarded to the
// external calendar.
type PushPolicy interface {
	Decide(req models.SyncRequest) *PushDecision
}

// DefaultPushPolicy mirrors updates and deletes of linked events. Local
// creations are only mirrored on request or when enabled globally.
type DefaultPushPolicy struct {
	mirrorLocalCreates bool
}

func NewDefaultPushPolicy(cfg *config.SyncConfig) *DefaultPushPolicy {
	return &DefaultPushPolicy{
		mirrorLocalCreates: cfg.MirrorLocalCreates,
	}
}

func (p *DefaultPushPolicy) Decide(req models.SyncRequest) *PushDecision {
	decision := &PushDecision{Action: ActionNone}

	if req.Event == nil {
		decision.Reason = "No event to push"
		return decision
	}

	switch req.Op {
	case models.SyncAdd:
		if req.Event.IsExternalEvent || req.Event.ExternalEventID != "" {
			decision.Reason = "Event already exists on the external calendar"
			return decision
		}
		if !req.Mirror && !p.mirrorLocalCreates {
			decision.Reason = "Local creation stays local"
			return decision
		}
		decision.Forward = true
		decision.Action = ActionInsert
		decision.Reason = "Local creation mirrored to the external calendar"

	case models.SyncUpdate:
		if req.Event.ExternalEventID == "" {
			decision.Reason = "Event is not linked to an external event"
			return decision
		}
		decision.Forward = true
		decision.Action = ActionPatch
		decision.Reason = "Linked event updated"

	case models.SyncDelete:
		if req.Event.ExternalEventID == "" {
			decision.Reason = "Event is not linked to an external event"
			return decision
		}
		decision.Forward = true
		decision.Action = ActionDelete
		decision.Reason = "Linked event deleted"

	default:
		decision.Reason = "Unknown sync operation"
	}

	return decision
}
