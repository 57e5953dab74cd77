package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/domain/ports/repository"
)

var _ adapter.ConversationTransport = (*Transport)(nil)

// Transport delivers buyer messages to the chat a session was started from.
// Sessions not bound to a chat are skipped.
type Transport struct {
	send     sender
	sessions repository.SessionRepository
}

func NewTransport(api *tgbotapi.BotAPI, sessions repository.SessionRepository) *Transport {
	return &Transport{send: api, sessions: sessions}
}

func (t *Transport) Send(ctx context.Context, sessionID, text string) error {
	s, err := t.sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return fmt.Errorf("telegram transport: %w", err)
	}
	chatID, ok := chatIDFromUser(s.UserID)
	if !ok {
		return nil
	}
	if _, err := t.send.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
