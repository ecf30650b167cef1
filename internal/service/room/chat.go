package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/watchroom/server/internal/repository/room"
)

type SendChatMessageParams struct {
	Body      string
	SenderId  string
	SessionId string
}

type SendChatMessageResponse struct {
	Message ChatMessage
}

func (s service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) (SendChatMessageResponse, error) {
	member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{
		MemberId:  params.SenderId,
		SessionId: params.SessionId,
	})
	if err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			return SendChatMessageResponse{}, ErrMemberNotFound
		}
		return SendChatMessageResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	message := room.ChatMessage{
		Id:       uuid.NewString(),
		SenderId: params.SenderId,
		Username: member.Username,
		Body:     params.Body,
		SentAt:   time.Now().UnixMilli(),
	}

	if err := s.roomRepo.AddChatMessage(ctx, &room.AddChatMessageParams{
		Message:   message,
		SessionId: params.SessionId,
	}); err != nil {
		return SendChatMessageResponse{}, fmt.Errorf("failed to add chat message: %w", err)
	}

	return SendChatMessageResponse{
		Message: ChatMessage(message),
	}, nil
}

func (s service) ChatMessages(ctx context.Context, sessionId string) ([]ChatMessage, error) {
	raw, err := s.roomRepo.GetChatMessages(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %w", err)
	}

	messages := make([]ChatMessage, 0, len(raw))
	for _, message := range raw {
		messages = append(messages, ChatMessage(message))
	}

	return messages, nil
}
