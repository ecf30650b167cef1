package room

type Session struct {
	Id        string  `json:"id"`
	Name      string  `json:"name"`
	Capacity  int     `json:"capacity"`
	OwnerId   string  `json:"owner_id"`
	MediaRef  *string `json:"media_ref"`
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position"`
	UpdatedAt int64   `json:"updated_at"`
}

type Member struct {
	Id        string  `json:"id"`
	Username  string  `json:"username"`
	Color     string  `json:"color"`
	AvatarURL *string `json:"avatar_url"`
	IsOwner   bool    `json:"is_owner"`
}

type ChatMessage struct {
	Id       string `json:"id"`
	SenderId string `json:"sender_id"`
	Username string `json:"username"`
	Body     string `json:"body"`
	SentAt   int64  `json:"sent_at"`
}

// State is the full snapshot handed to a participant on open.
type State struct {
	Session  Session       `json:"session"`
	Members  []Member      `json:"members"`
	Messages []ChatMessage `json:"messages"`
}
