package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	roomrepo "github.com/watchroom/server/internal/repository/room"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/validator"
	"github.com/watchroom/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateSession(context.Context, *room.CreateSessionParams) (room.CreateSessionResponse, error)
	JoinSession(context.Context, *room.JoinSessionParams) (room.JoinSessionResponse, error)
	LeaveSession(context.Context, *room.LeaveSessionParams) error
	DeleteSession(context.Context, *room.DeleteSessionParams) error
	GetState(context.Context, string) (room.State, error)
	UpdatePlayback(context.Context, *room.UpdatePlaybackParams) error
	UpdatePosition(context.Context, *room.UpdatePositionParams) error
	UpdateMedia(context.Context, *room.UpdateMediaParams) error
	SendChatMessage(context.Context, *room.SendChatMessageParams) (room.SendChatMessageResponse, error)
	Subscribe(context.Context, string) (*roomrepo.Subscription, error)
}

type iConnRepo interface {
	Add(conn *wsrouter.Conn, memberId string) error
	RemoveByMemberId(memberId string) error
	GetConn(memberId string) (*wsrouter.Conn, error)
}

type controller struct {
	roomService iRoomService
	connRepo    iConnRepo
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(roomService iRoomService, connRepo iConnRepo, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		connRepo:    connRepo,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
