package telegram

import (
	"context"
	"os"
	"time"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/repository"
	"FinScout/internal/domain/service"
	"FinScout/internal/service/provider"
	"FinScout/pkg/clock"
	"FinScout/pkg/config"
	xhttp "FinScout/pkg/http"
	"FinScout/pkg/logger"
	"FinScout/pkg/resilience"
	"FinScout/pkg/util"
)

const (
	providerName = "telegram"
	sendTimeout  = 30 * time.Second
	previewLen   = 100
)

// Bot delivers operator messages through the Telegram bot API. When the bot
// is disabled or has no token, every send logs a preview and drops the
// message, so the rest of the app never needs to care.
type Bot struct {
	cfg   config.TelegramConfig
	http  *xhttp.Client
	retry *resilience.Retry
	met   repository.Metrics
	clk   clock.Clock
	log   *logger.Logger
}

var _ service.Notifier = (*Bot)(nil)

// Option configures optional bot collaborators.
type Option func(*Bot)

// WithMetrics records delivery telemetry on m.
func WithMetrics(m repository.Metrics) Option {
	return func(b *Bot) {
		b.met = m
	}
}

// WithClock substitutes the clock used for backoff and message stamps.
func WithClock(clk clock.Clock) Option {
	return func(b *Bot) {
		b.clk = clk
	}
}

// New builds a Bot from config.
func New(cfg config.TelegramConfig, lgr *logger.Logger, opts ...Option) *Bot {
	b := &Bot{
		cfg: cfg,
		met: repository.NopMetrics{},
		clk: clock.NewSystem(),
		log: lgr,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.http = xhttp.NewClient(xhttp.WithTimeout(sendTimeout))
	b.retry = resilience.NewRetry(resilience.RetryConfig{
		MaxRetries:    3,
		InitialDelay:  2 * time.Second,
		BackoffFactor: 2,
	}, provider.Retryable, b.clk)
	if !b.Enabled() {
		lgr.Warn("telegram notifications disabled")
	}
	return b
}

// Enabled reports whether messages will actually be delivered.
func (b *Bot) Enabled() bool {
	return b.cfg.Enabled && b.cfg.Token != ""
}

// SignalAlert posts a formatted buy signal, mirrored to the broadcast
// channel when one is configured.
func (b *Bot) SignalAlert(ctx context.Context, rec *models.SignalRecord) error {
	return b.broadcast(ctx, buildSignalAlert(rec))
}

// RatingPrompt asks the operator to grade a signal with inline star buttons.
func (b *Bot) RatingPrompt(ctx context.Context, rec *models.SignalRecord) error {
	text, markup := buildRatingPrompt(rec)
	return b.send(ctx, b.cfg.ChatID, text, markup)
}

// MacroWarning announces the macro gate tripping, mirrored to the channel.
func (b *Bot) MacroWarning(ctx context.Context, m *models.MacroAnalysis) error {
	return b.broadcast(ctx, buildMacroWarning(m))
}

// DailySummary posts the end-of-run digest, mirrored to the channel.
func (b *Bot) DailySummary(ctx context.Context, res *models.RunResult) error {
	return b.broadcast(ctx, buildDailySummary(res, b.clk.Now()))
}

// ReviewList posts unrated signals with their current price and return.
func (b *Bot) ReviewList(ctx context.Context, recs []*models.SignalRecord, prices map[string]float64) error {
	return b.send(ctx, b.cfg.ChatID, buildReviewList(recs, prices), nil)
}

// Stats posts the signal history statistics.
func (b *Bot) Stats(ctx context.Context, st *models.SignalStatistics) error {
	return b.send(ctx, b.cfg.ChatID, buildStats(st), nil)
}

// ErrorAlert posts a truncated run failure to the operator chat.
func (b *Bot) ErrorAlert(ctx context.Context, runErr error) error {
	return b.send(ctx, b.cfg.ChatID, buildErrorAlert(runErr), nil)
}

// Startup announces the process coming up.
func (b *Bot) Startup(ctx context.Context, watchlistSize int, llmAvailable bool) error {
	host, _ := os.Hostname()
	return b.send(ctx, b.cfg.ChatID, buildStartup(b.clk.Now(), host, watchlistSize, llmAvailable), nil)
}

// broadcast sends to the operator chat and mirrors to the channel when a
// distinct one is configured.
func (b *Bot) broadcast(ctx context.Context, text string) error {
	if err := b.send(ctx, b.cfg.ChatID, text, nil); err != nil {
		return err
	}
	if b.cfg.ChannelID != "" && b.cfg.ChannelID != b.cfg.ChatID {
		return b.send(ctx, b.cfg.ChannelID, text, nil)
	}
	return nil
}

type sendRequest struct {
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (b *Bot) send(ctx context.Context, chatID, text string, markup *replyMarkup) error {
	if !b.Enabled() {
		b.log.Info("telegram disabled, dropping message",
			logger.String("preview", util.Truncate(text, previewLen)))
		return nil
	}
	if chatID == "" {
		return provider.Logical(providerName, "no chat id configured")
	}

	payload := &sendRequest{ChatID: chatID, Text: text, ParseMode: "HTML", ReplyMarkup: markup}
	return b.retry.Do(ctx, func() error {
		var resp apiResponse
		err := b.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    b.cfg.BaseURL + "/bot" + b.cfg.Token + "/sendMessage",
			Body:   payload,
		}, &resp)
		if err != nil {
			b.met.RecordProviderRequest(providerName, "error")
			return provider.FromTransport(providerName, err)
		}
		if !resp.OK {
			b.met.RecordProviderRequest(providerName, "error")
			msg := resp.Description
			if msg == "" {
				msg = "send rejected"
			}
			return provider.Logical(providerName, msg)
		}
		b.met.RecordProviderRequest(providerName, "success")
		return nil
	})
}
