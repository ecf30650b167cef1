package room

type SetSessionParams struct {
	Name      string
	Capacity  int
	OwnerId   string
	MediaRef  *string
	IsPlaying bool
	Position  float64
	UpdatedAt int64
	SessionId string
}

type UpdatePlaybackParams struct {
	IsPlaying bool
	Position  float64
	UpdatedAt int64
	SessionId string
}

type UpdatePositionParams struct {
	Position  float64
	UpdatedAt int64
	SessionId string
}

type UpdateMediaParams struct {
	MediaRef  *string
	UpdatedAt int64
	SessionId string
}

type SetMemberParams struct {
	Username  string
	Color     string
	AvatarURL *string
	MemberId  string
	SessionId string
}

type RemoveMemberParams struct {
	MemberId  string
	SessionId string
}

type GetMemberParams struct {
	MemberId  string
	SessionId string
}

type AddChatMessageParams struct {
	Message   ChatMessage
	SessionId string
}
