package room

// Session is the authoritative record of one viewing session. Playback
// fields (MediaRef, IsPlaying, Position) are written only by the owner.
type Session struct {
	Name      string  `redis:"name" json:"name"`
	Capacity  int     `redis:"capacity" json:"capacity"`
	OwnerId   string  `redis:"owner_id" json:"owner_id"`
	MediaRef  *string `redis:"media_ref" json:"media_ref"`
	IsPlaying bool    `redis:"is_playing" json:"is_playing"`
	Position  float64 `redis:"position" json:"position"`
	UpdatedAt int64   `redis:"updated_at" json:"updated_at"`
}

type Member struct {
	Username  string  `redis:"username" json:"username"`
	Color     string  `redis:"color" json:"color"`
	AvatarURL *string `redis:"avatar_url" json:"avatar_url"`
}

type ChatMessage struct {
	Id       string `json:"id"`
	SenderId string `json:"sender_id"`
	Username string `json:"username"`
	Body     string `json:"body"`
	SentAt   int64  `json:"sent_at"`
}
