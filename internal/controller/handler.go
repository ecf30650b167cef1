package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	roomrepo "github.com/watchroom/server/internal/repository/room"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/wsrouter"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c controller) createSession(w http.ResponseWriter, r *http.Request) {
	user, err := c.getUser(r)
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to get user", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name was not provided", http.StatusBadRequest)
		return
	}

	capacity, err := strconv.Atoi(r.URL.Query().Get("capacity"))
	if err != nil {
		http.Error(w, "invalid capacity", http.StatusBadRequest)
		return
	}

	var mediaRef *string
	if ref := r.URL.Query().Get("media-ref"); ref != "" {
		mediaRef = &ref
	}

	createSessionResp, err := c.roomService.CreateSession(r.Context(), &room.CreateSessionParams{
		Name:      name,
		Capacity:  capacity,
		MediaRef:  mediaRef,
		Identity:  user.identity,
		Username:  user.username,
		Color:     user.color,
		AvatarURL: user.avatarURL,
	})
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to create session", "error", err)
		c.writeServiceError(w, err)
		return
	}

	c.serveSession(w, r, createSessionResp.SessionId, user.identity)
}

func (c controller) joinSession(w http.ResponseWriter, r *http.Request) {
	sessionId := chi.URLParam(r, "session-id")
	if sessionId == "" {
		http.Error(w, "empty session id", http.StatusBadRequest)
		return
	}

	user, err := c.getUser(r)
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to get user", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := c.roomService.JoinSession(r.Context(), &room.JoinSessionParams{
		Identity:  user.identity,
		Username:  user.username,
		Color:     user.color,
		AvatarURL: user.avatarURL,
		SessionId: sessionId,
	}); err != nil {
		c.logger.DebugContext(r.Context(), "failed to join session", "error", err)
		c.writeServiceError(w, err)
		return
	}

	c.serveSession(w, r, sessionId, user.identity)
}

// serveSession upgrades the connection and serves it until it drops. The
// member is already joined; teardown always leaves the session.
func (c controller) serveSession(w http.ResponseWriter, r *http.Request, sessionId, memberId string) {
	defer c.disconnect(r.Context(), sessionId, memberId)

	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	conn := wsrouter.NewConn(ws)
	defer conn.Close()

	if err := c.connRepo.Add(conn, memberId); err != nil {
		c.logger.WarnContext(r.Context(), "failed to register conn", "error", err)
		return
	}

	state, err := c.roomService.GetState(r.Context(), sessionId)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to get session state", "error", err)
		return
	}

	if err := conn.WriteJSON(&Output{
		Type:    "SESSION_STATE",
		Payload: state,
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write json", "error", err)
		return
	}

	sub, err := c.roomService.Subscribe(r.Context(), sessionId)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to subscribe", "error", err)
		return
	}
	defer sub.Close()

	go c.pumpEvents(conn, sub)

	ctx := context.WithValue(r.Context(), sessionIdCtxKey, sessionId)
	ctx = context.WithValue(ctx, memberIdCtxKey, memberId)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(r.Context(), "conn closed", "error", err)
	}
}

// pumpEvents forwards store change notifications to the websocket peer.
// This is the fan-out leg of the sync protocol for browser participants.
func (c controller) pumpEvents(conn *wsrouter.Conn, sub *roomrepo.Subscription) {
	for event := range sub.Events {
		if err := conn.WriteJSON(&Output{
			Type:    event.Type,
			Payload: event.Payload,
		}); err != nil {
			return
		}

		if event.Type == roomrepo.EventSessionDeleted {
			conn.WriteClose(4000, "session deleted")
			conn.Close()
			return
		}
	}
}

func (c controller) disconnect(ctx context.Context, sessionId, memberId string) {
	if err := c.connRepo.RemoveByMemberId(memberId); err != nil {
		c.logger.DebugContext(ctx, "failed to remove conn", "error", err)
	}

	if err := c.roomService.LeaveSession(context.WithoutCancel(ctx), &room.LeaveSessionParams{
		Identity:  memberId,
		SessionId: sessionId,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to leave session", "error", err)
	}
}
