package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"www.github.com/Wanderer0074348/EventSync/src/config"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

func TestPushPolicy_LocalCreateStaysLocal(t *testing.T) {
	policy := NewDefaultPushPolicy(&config.SyncConfig{})

	decision := policy.Decide(models.SyncRequest{Op: models.SyncAdd, Event: &models.Event{ID: "e1"}})

	assert.False(t, decision.Forward)
	assert.Contains(t, decision.Reason, "stays local")
}

func TestPushPolicy_MirrorOnRequest(t *testing.T) {
	policy := NewDefaultPushPolicy(&config.SyncConfig{})

	decision := policy.Decide(models.SyncRequest{Op: models.SyncAdd, Event: &models.Event{ID: "e1"}, Mirror: true})

	assert.True(t, decision.Forward)
	assert.Equal(t, ActionInsert, decision.Action)
}

func TestPushPolicy_MirrorEnabledGlobally(t *testing.T) {
	policy := NewDefaultPushPolicy(&config.SyncConfig{MirrorLocalCreates: true})

	decision := policy.Decide(models.SyncRequest{Op: models.SyncAdd, Event: &models.Event{ID: "e1"}})
	assert.True(t, decision.Forward)

	decision = policy.Decide(models.SyncRequest{Op: models.SyncAdd, Event: &models.Event{ID: "e2", IsExternalEvent: true, ExternalEventID: "g1"}})
	assert.False(t, decision.Forward)
}

func TestPushPolicy_UpdateAndDeleteNeedExternalID(t *testing.T) {
	policy := NewDefaultPushPolicy(&config.SyncConfig{})
	local := &models.Event{ID: "e1"}
	linked := &models.Event{ID: "e2", IsExternalEvent: true, ExternalEventID: "g1"}

	cases := []struct {
		name    string
		req     models.SyncRequest
		forward bool
		action  PushAction
	}{
		{"update local", models.SyncRequest{Op: models.SyncUpdate, Event: local}, false, ActionNone},
		{"update linked", models.SyncRequest{Op: models.SyncUpdate, Event: linked}, true, ActionPatch},
		{"delete local", models.SyncRequest{Op: models.SyncDelete, Event: local}, false, ActionNone},
		{"delete linked", models.SyncRequest{Op: models.SyncDelete, Event: linked}, true, ActionDelete},
		{"unknown op", models.SyncRequest{Op: "rename", Event: linked}, false, ActionNone},
		{"no event", models.SyncRequest{Op: models.SyncUpdate}, false, ActionNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := policy.Decide(tc.req)
			assert.Equal(t, tc.forward, decision.Forward)
			assert.Equal(t, tc.action, decision.Action)
			assert.NotEmpty(t, decision.Reason)
		})
	}
}
