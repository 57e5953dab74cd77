package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/infra/logging"
	"negotiation-agent/internal/negotiation"
	"negotiation-agent/internal/usecase"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

func (b *Bot) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":     b.handleHelpCommand,
		"help":      b.handleHelpCommand,
		"negotiate": b.handleNegotiateCommand,
		"status":    b.handleStatusCommand,
		"cancel":    b.handleCancelCommand,
	}
}

func (b *Bot) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.reply(message.Chat.ID, b.t.T("usage"))
}

// handleNegotiateCommand parses "<reference> <target> <max> [approach]".
// The reference may contain spaces; the prices are taken from the end.
func (b *Bot) handleNegotiateCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	req, err := parseNegotiateArgs(message.CommandArguments())
	if err != nil {
		return b.reply(chatID, b.t.T("start_failed", err.Error(), b.t.T("usage")))
	}
	req.UserID = UserID(chatID)

	res, err := b.uc.Start(ctx, req)
	if err != nil {
		return b.reply(chatID, b.errorText(ctx, err))
	}
	p := res.Session.Product
	note := ""
	if !p.Verified {
		note = b.t.T("estimated_note")
	}
	return b.reply(chatID, b.t.T("negotiating", p.Title, negotiation.FormatPrice(b.currency, p.ListedPrice), note))
}

func parseNegotiateArgs(args string) (usecase.StartRequest, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return usecase.StartRequest{}, errors.New("not enough arguments")
	}
	approach := model.ApproachDiplomatic
	if a, err := model.ParseApproach(fields[len(fields)-1]); err == nil && !isNumeric(fields[len(fields)-1]) {
		approach = a
		fields = fields[:len(fields)-1]
	}
	if len(fields) < 3 {
		return usecase.StartRequest{}, errors.New("not enough arguments")
	}
	target, ok1 := parseAmount(fields[len(fields)-2])
	maxBudget, ok2 := parseAmount(fields[len(fields)-1])
	if !ok1 || !ok2 {
		return usecase.StartRequest{}, errors.New("target price and max budget must be amounts, e.g. 45000 or 45k")
	}
	return usecase.StartRequest{
		Reference: strings.Join(fields[:len(fields)-2], " "),
		Params:    model.UserParameters{TargetPrice: target, MaxBudget: maxBudget, Approach: approach},
	}, nil
}

func parseAmount(s string) (int64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if v, ok := negotiation.LastPrice(s); ok {
		return v, true
	}
	// small bare numbers are not prices in free text, but they are here
	if !isNumeric(s) {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil && v > 0
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (b *Bot) handleStatusCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	s, err := b.uc.FindActiveByUser(ctx, UserID(chatID))
	if err != nil {
		return b.reply(chatID, b.errorText(ctx, err))
	}
	last := b.t.T("no_offer_yet")
	if s.LastOffer != nil {
		last = negotiation.FormatPrice(b.currency, *s.LastOffer)
	}
	return b.reply(chatID, b.t.T("status",
		s.Product.Title,
		negotiation.FormatPrice(b.currency, s.Product.ListedPrice),
		negotiation.FormatPrice(b.currency, s.Params.TargetPrice),
		negotiation.FormatPrice(b.currency, s.Params.MaxBudget),
		s.Phase, len(s.Messages), last))
}

func (b *Bot) handleCancelCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	s, err := b.uc.FindActiveByUser(ctx, UserID(chatID))
	if err != nil {
		return b.reply(chatID, b.errorText(ctx, err))
	}
	if _, err := b.uc.Cancel(ctx, s.ID); err != nil {
		return b.reply(chatID, b.errorText(ctx, err))
	}
	return b.reply(chatID, b.t.T("cancelled"))
}

// handleSellerText feeds a plain message into the chat's active session.
// The buyer reply itself is delivered by Transport.
func (b *Bot) handleSellerText(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	s, err := b.uc.FindActiveByUser(ctx, UserID(chatID))
	if err != nil {
		return b.reply(chatID, b.errorText(ctx, err))
	}
	res, err := b.uc.HandleSellerMessage(logging.WithSessID(ctx, s.ID), s.ID, message.Text)
	if err != nil {
		return b.reply(chatID, b.errorText(ctx, err))
	}
	if summary := b.outcomeText(res.Session); summary != "" {
		return b.reply(chatID, summary)
	}
	return nil
}

func (b *Bot) outcomeText(s *model.NegotiationSession) string {
	switch s.Status {
	case model.SessionCompleted:
		if s.Outcome == model.OutcomeSuccess && s.FinalPrice != nil {
			return b.t.T("deal_agreed", negotiation.FormatPrice(b.currency, *s.FinalPrice))
		}
		return b.t.T("ended", strings.ReplaceAll(string(s.Outcome), "_", " "))
	case model.SessionHandoff:
		return b.t.T("handoff", strings.ReplaceAll(s.HandoffReason, "_", " "))
	}
	return ""
}

func (b *Bot) errorText(ctx context.Context, err error) string {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return b.t.T("err_input", verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		return b.t.T("err_no_session")
	case errors.Is(err, domain.ErrAlreadyExists):
		return b.t.T("err_active_exists")
	case errors.Is(err, domain.ErrSessionNotActive):
		return b.t.T("err_not_active")
	case errors.Is(err, domain.ErrSessionBusy):
		return b.t.T("err_busy")
	default:
		logging.With(ctx, b.log).Error().Err(err).Msg("telegram: request failed")
		return b.t.T("err_internal")
	}
}
