package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/watchroom/server/internal/service/room"
)

type CreateSessionInput struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Capacity int     `json:"capacity" validate:"required,gte=1"`
	MediaRef *string `json:"media_ref"`
}

// createSessionApi creates a session without upgrading to a websocket. The
// caller becomes the owner and joins the session later, over /ws/join or a
// coordinator.
func (c controller) createSessionApi(w http.ResponseWriter, r *http.Request) {
	user, err := c.getUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var input CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if errs, ok := c.validate.Validate(input); !ok {
		c.writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	createResp, err := c.roomService.CreateSession(r.Context(), &room.CreateSessionParams{
		Name:      input.Name,
		Capacity:  input.Capacity,
		MediaRef:  input.MediaRef,
		Identity:  user.identity,
		Username:  user.username,
		Color:     user.color,
		AvatarURL: user.avatarURL,
	})
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to create session", "error", err)
		http.Error(w, fmt.Sprintf("failed to create session: %v", err), http.StatusBadRequest)
		return
	}

	c.writeJSON(w, http.StatusCreated, createResp.Session)
}

func (c controller) getSessionState(w http.ResponseWriter, r *http.Request) {
	sessionId := chi.URLParam(r, "session-id")

	state, err := c.roomService.GetState(r.Context(), sessionId)
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to get session state", "error", err)
		c.writeServiceError(w, err)
		return
	}

	c.writeJSON(w, http.StatusOK, state)
}

func (c controller) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionId := chi.URLParam(r, "session-id")

	identity, err := c.mustHeader(r, "Identity")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := c.roomService.DeleteSession(r.Context(), &room.DeleteSessionParams{
		SenderId:  identity,
		SessionId: sessionId,
	}); err != nil {
		c.logger.DebugContext(r.Context(), "failed to delete session", "error", err)
		c.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
