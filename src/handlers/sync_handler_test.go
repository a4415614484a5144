package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"www.github.com/Wanderer0074348/EventSync/src/models"
	"www.github.com/Wanderer0074348/EventSync/src/session"
)

type stubSyncController struct {
	result *models.PullResult
	err    error
	status models.SessionStatus
}

func (s *stubSyncController) SyncNow(ctx context.Context, userID string) (*models.PullResult, error) {
	return s.result, s.err
}

func (s *stubSyncController) Status(userID string) (models.SessionStatus, bool) {
	return s.status, s.status.UserID != ""
}

func TestSyncHandler_SyncNow(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"not linked", models.ErrNotLinked, http.StatusConflict},
		{"in progress", session.ErrSyncInProgress, http.StatusConflict},
		{"no session", session.ErrNoSession, http.StatusUnauthorized},
		{"provider failure", errors.New("googleapi: Error 500"), http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			controller := &stubSyncController{result: &models.PullResult{Created: 1}, err: tc.err}
			handler := NewSyncHandler(controller)

			c, w := newContext("POST", "/api/v1/sync", nil)
			handler.SyncNow(c)

			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "googleapi")
		})
	}
}

func TestSyncHandler_Status(t *testing.T) {
	controller := &stubSyncController{status: models.SessionStatus{
		UserID:       "u1",
		State:        models.StateVerified,
		GoogleLinked: true,
	}}
	handler := NewSyncHandler(controller)

	c, w := newContext("GET", "/api/v1/sync/status", nil)
	handler.Status(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"authenticated_verified"`)
	assert.Contains(t, w.Body.String(), `"google_linked":true`)
}
