// Package playback implements the synchronized playback coordination
// engine: an owner-side state machine that publishes authoritative playback
// state, a follower-side reconciler that keeps a local media engine in
// approximate lock-step with it, and a per-session coordinator gluing them
// to the session store.
package playback

import (
	"context"
	"errors"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFull     = errors.New("session full")
	ErrNotOwner        = errors.New("identity is not the session owner")
)

type Role int

const (
	RoleFollower Role = iota
	RoleOwner
)

func (r Role) String() string {
	if r == RoleOwner {
		return "owner"
	}
	return "follower"
}

// Snapshot is the authoritative playback state of a session as read from
// the store.
type Snapshot struct {
	OwnerId  string
	MediaRef *string
	Playing  bool
	Position float64
}

// Update is one change notification. Deleted marks the terminal
// notification after session deletion; Snapshot is nil in that case.
type Update struct {
	Snapshot *Snapshot
	Deleted  bool
}

// Feed is a handle on a session's update stream.
type Feed struct {
	Updates <-chan Update

	close func() error
}

func NewFeed(updates <-chan Update, close func() error) *Feed {
	return &Feed{Updates: updates, close: close}
}

func (f *Feed) Close() error {
	return f.close()
}

// Store is everything the coordinator needs from the session store and the
// membership registry, bound to one session and one identity.
type Store interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	WritePlayback(ctx context.Context, playing bool, position float64) error
	WritePosition(ctx context.Context, position float64) error
	WriteMedia(ctx context.Context, ref *string) error
	Join(ctx context.Context) error
	Leave(ctx context.Context) error
	Subscribe(ctx context.Context) (*Feed, error)
}
