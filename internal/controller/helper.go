package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/watchroom/server/internal/service/room"
)

const (
	headerPrefix = "Wr-"
)

type user struct {
	identity  string
	username  string
	color     string
	avatarURL *string
}

func (c controller) mustHeader(r *http.Request, key string) (string, error) {
	value := r.Header.Get(headerPrefix + key)
	if value == "" {
		return "", fmt.Errorf("%s was not provided", key)
	}

	return value, nil
}

func (c controller) getUser(r *http.Request) (user, error) {
	identity, err := c.mustHeader(r, "Identity")
	if err != nil {
		return user{}, err
	}

	username, err := c.mustHeader(r, "Username")
	if err != nil {
		return user{}, err
	}

	u := user{
		identity: identity,
		username: username,
		color:    r.Header.Get(headerPrefix + "Color"),
	}

	if avatarURL := r.Header.Get(headerPrefix + "Avatar-Url"); avatarURL != "" {
		u.avatarURL = &avatarURL
	}

	return u, nil
}

func (c controller) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (c controller) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, room.ErrRoomFull):
		status = http.StatusConflict
	case errors.Is(err, room.ErrNotOwner):
		status = http.StatusForbidden
	}

	c.writeJSON(w, status, map[string]string{"error": err.Error()})
}
