package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/watchroom/server/internal/repository/room"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room full")
	ErrNotOwner       = errors.New("sender is not the session owner")
	ErrMemberNotFound = errors.New("member not found")
)

type iRoomRepo interface {
	// session
	SetSession(context.Context, *room.SetSessionParams) error
	GetSession(context.Context, string) (room.Session, error)
	UpdatePlayback(context.Context, *room.UpdatePlaybackParams) error
	UpdatePosition(context.Context, *room.UpdatePositionParams) error
	UpdateMedia(context.Context, *room.UpdateMediaParams) error
	RemoveSession(context.Context, string) error
	// member
	SetMember(context.Context, *room.SetMemberParams) error
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	GetMember(context.Context, *room.GetMemberParams) (room.Member, error)
	GetMemberIds(context.Context, string) ([]string, error)
	GetMemberCount(context.Context, string) (int, error)
	// chat
	AddChatMessage(context.Context, *room.AddChatMessageParams) error
	GetChatMessages(context.Context, string) ([]room.ChatMessage, error)
	// notifications
	Subscribe(context.Context, string) (*room.Subscription, error)
}

type Config struct {
	// MaxCapacity bounds the capacity a session can be created with.
	MaxCapacity int
}

type service struct {
	roomRepo    iRoomRepo
	logger      *slog.Logger
	maxCapacity int
}

func NewService(roomRepo iRoomRepo, cfg *Config, logger *slog.Logger) *service {
	return &service{
		roomRepo:    roomRepo,
		logger:      logger,
		maxCapacity: cfg.MaxCapacity,
	}
}

// Subscribe opens the change-notification stream for a session.
func (s service) Subscribe(ctx context.Context, sessionId string) (*room.Subscription, error) {
	return s.roomRepo.Subscribe(ctx, sessionId)
}
