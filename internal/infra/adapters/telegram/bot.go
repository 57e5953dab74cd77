package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"negotiation-agent/internal/config"
	"negotiation-agent/internal/infra/i18n"
	"negotiation-agent/internal/infra/logging"
	red "negotiation-agent/internal/infra/redis"
	"negotiation-agent/internal/infra/worker"
	"negotiation-agent/internal/usecase"
)

const userPrefix = "tg:"

// sender is the part of *tgbotapi.BotAPI used for outbound messages.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// UserID is the negotiation user bound to a Telegram chat.
func UserID(chatID int64) string { return userPrefix + strconv.FormatInt(chatID, 10) }

func chatIDFromUser(userID string) (int64, bool) {
	if !strings.HasPrefix(userID, userPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(userID, userPrefix), 10, 64)
	return id, err == nil
}

// NewBotAPI connects to Telegram with the configured token.
func NewBotAPI(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug
	return api, nil
}

// Bot polls updates and hands each one to the worker pool. The chat plays
// the seller; buyer replies reach the chat through Transport.
type Bot struct {
	api      *tgbotapi.BotAPI
	send     sender
	uc       usecase.NegotiationUseCase
	pool     *worker.Pool
	limiter  RateLimiter
	currency string
	t        *i18n.Translator
	log      *zerolog.Logger

	rateLimit  int
	rateWindow time.Duration

	cancelPolling context.CancelFunc
}

type BotOptions struct {
	Currency   string
	RateLimit  int // messages per window per chat, 0 disables
	RateWindow time.Duration
	Texts      *i18n.Translator // defaults to the embedded English texts
}

func NewBot(api *tgbotapi.BotAPI, uc usecase.NegotiationUseCase, pool *worker.Pool, limiter RateLimiter, opt BotOptions, logger *zerolog.Logger) *Bot {
	b := newBot(api, uc, pool, limiter, opt, logger)
	b.api = api
	return b
}

func newBot(s sender, uc usecase.NegotiationUseCase, pool *worker.Pool, limiter RateLimiter, opt BotOptions, logger *zerolog.Logger) *Bot {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opt.Currency == "" {
		opt.Currency = "₹"
	}
	if opt.RateWindow <= 0 {
		opt.RateWindow = time.Minute
	}
	if opt.Texts == nil {
		opt.Texts = i18n.Default()
	}
	return &Bot{
		send:       s,
		uc:         uc,
		pool:       pool,
		limiter:    limiter,
		currency:   opt.Currency,
		t:          opt.Texts,
		log:        logger,
		rateLimit:  opt.RateLimit,
		rateWindow: opt.RateWindow,
	}
}

// StartPolling blocks until ctx is cancelled or StopPolling is called.
func (b *Bot) StartPolling(ctx context.Context) error {
	if b.api == nil {
		return errors.New("telegram bot has no api client")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel
	defer b.api.StopReceivingUpdates()

	b.log.Info().Str("bot", b.api.Self.UserName).Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, up)
		}
	}
}

func (b *Bot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

// dispatch keys each update by chat so one chat's messages are handled in
// the order Telegram delivered them.
func (b *Bot) dispatch(ctx context.Context, up tgbotapi.Update) {
	task := func(ctx context.Context) error { return b.handleUpdate(ctx, up) }
	var err error
	if up.Message != nil && up.Message.Chat != nil {
		err = b.pool.SubmitKeyed(uint64(up.Message.Chat.ID), task)
	} else {
		err = b.pool.Submit(task)
	}
	if errors.Is(err, worker.ErrQueueFull) && up.Message != nil {
		b.log.Warn().Int64("chat_id", up.Message.Chat.ID).Msg("update dropped, workers saturated")
		_ = b.reply(up.Message.Chat.ID, b.t.T("busy_workers"))
	}
}

func (b *Bot) handleUpdate(ctx context.Context, up tgbotapi.Update) error {
	msg := up.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID
	ctx = logging.WithChatID(logging.WithUserID(ctx, UserID(chatID)), chatID)

	if ok := b.allow(ctx, chatID); !ok {
		return b.reply(chatID, b.t.T("rate_limited"))
	}

	if msg.IsCommand() {
		if fn, ok := b.commandRoutes()[msg.Command()]; ok {
			return fn(ctx, msg)
		}
		return b.reply(chatID, b.t.T("unknown_command"))
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	return b.handleSellerText(ctx, msg)
}

func (b *Bot) allow(ctx context.Context, chatID int64) bool {
	if b.limiter == nil || b.rateLimit <= 0 {
		return true
	}
	ok, err := b.limiter.Allow(ctx, red.ClientKey("telegram", strconv.FormatInt(chatID, 10)), b.rateLimit, b.rateWindow)
	if err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

func (b *Bot) reply(chatID int64, text string) error {
	_, err := b.send.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
