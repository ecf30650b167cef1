package media

import "errors"

var (
	ErrUnresolvable = errors.New("media ref does not resolve to playable content")
	ErrNoMedia      = errors.New("no media loaded")
	ErrEngineClosed = errors.New("engine is closed")
)
