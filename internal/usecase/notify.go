package usecase

import (
	"context"
	"errors"
	"fmt"

	"FinScout/internal/domain/models"
	domsvc "FinScout/internal/domain/service"
	"FinScout/pkg/logger"
	"FinScout/pkg/queue"
)

// Message types routed through the notification queue.
const (
	msgSignalAlert  = "notify.signal_alert"
	msgRatingPrompt = "notify.rating_prompt"
	msgMacroWarning = "notify.macro_warning"
	msgDailySummary = "notify.daily_summary"
	msgReviewList   = "notify.review_list"
	msgStats        = "notify.stats"
	msgErrorAlert   = "notify.error_alert"
	msgStartup      = "notify.startup"
)

type reviewListPayload struct {
	Records []*models.SignalRecord `json:"records"`
	Prices  map[string]float64     `json:"prices"`
}

type startupPayload struct {
	WatchlistSize int  `json:"watchlist_size"`
	LLMAvailable  bool `json:"llm_available"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// QueuedNotifier hands messages to the job queue so slow or flaky delivery
// never stalls a run. Every method returns nil; when the queue cannot take
// a message it is sent inline as a fallback.
type QueuedNotifier struct {
	inner  domsvc.Notifier
	queue  *queue.MemoryQueue
	log    *logger.Logger
	handle map[string]func(ctx context.Context, payload interface{}) error
}

var _ domsvc.Notifier = (*QueuedNotifier)(nil)

// NewQueuedNotifier wraps inner with queue-backed dispatch. Register Jobs()
// on the queue before starting it.
func NewQueuedNotifier(inner domsvc.Notifier, q *queue.MemoryQueue, lgr *logger.Logger) *QueuedNotifier {
	n := &QueuedNotifier{inner: inner, queue: q, log: lgr}
	n.handle = map[string]func(ctx context.Context, payload interface{}) error{
		msgSignalAlert: func(ctx context.Context, payload interface{}) error {
			rec, err := queue.ParsePayload[models.SignalRecord](payload)
			if err != nil {
				return fmt.Errorf("%s: %w", msgSignalAlert, err)
			}
			return inner.SignalAlert(ctx, rec)
		},
		msgRatingPrompt: func(ctx context.Context, payload interface{}) error {
			rec, err := queue.ParsePayload[models.SignalRecord](payload)
			if err != nil {
				return fmt.Errorf("%s: %w", msgRatingPrompt, err)
			}
			return inner.RatingPrompt(ctx, rec)
		},
		msgMacroWarning: func(ctx context.Context, payload interface{}) error {
			m, err := queue.ParsePayload[models.MacroAnalysis](payload)
			if err != nil {
				return fmt.Errorf("%s: %w", msgMacroWarning, err)
			}
			return inner.MacroWarning(ctx, m)
		},
		msgDailySummary: func(ctx context.Context, payload interface{}) error {
			res, err := queue.ParsePayload[models.RunResult](payload)
			if err != nil {
				return fmt.Errorf("%s: %w", msgDailySummary, err)
			}
			return inner.DailySummary(ctx, res)
		},
		msgReviewList: func(ctx context.Context, payload interface{}) error {
			p, err := queue.ParsePayload[reviewListPayload](payload)
			if err != nil {
				return fmt.Errorf("%s: %w", msgReviewList, err)
			}
			return inner.ReviewList(ctx, p.Records, p.Prices)
		},
		msgStats: func(ctx context.Context, payload interface{}) error {
			st, err := queue.ParsePayload[models.SignalStatistics](payload)
			if err != nil {
				return fmt.Errorf("%s: %w", msgStats, err)
			}
			return inner.Stats(ctx, st)
		},
		msgErrorAlert: func(ctx context.Context, payload interface{}) error {
			p, err := queue.ParsePayload[errorPayload](payload)
			if err != nil {
				return fmt.Errorf("%s: %w", msgErrorAlert, err)
			}
			return inner.ErrorAlert(ctx, errors.New(p.Message))
		},
		msgStartup: func(ctx context.Context, payload interface{}) error {
			p, err := queue.ParsePayload[startupPayload](payload)
			if err != nil {
				return fmt.Errorf("%s: %w", msgStartup, err)
			}
			return inner.Startup(ctx, p.WatchlistSize, p.LLMAvailable)
		},
	}
	return n
}

// Jobs returns the queue handlers for every notification type.
func (n *QueuedNotifier) Jobs() []queue.Job {
	out := make([]queue.Job, 0, len(n.handle))
	for typ, fn := range n.handle {
		out = append(out, notifyJob{typ: typ, fn: fn})
	}
	return out
}

func (n *QueuedNotifier) SignalAlert(ctx context.Context, rec *models.SignalRecord) error {
	n.dispatch(ctx, msgSignalAlert, rec)
	return nil
}

func (n *QueuedNotifier) RatingPrompt(ctx context.Context, rec *models.SignalRecord) error {
	n.dispatch(ctx, msgRatingPrompt, rec)
	return nil
}

func (n *QueuedNotifier) MacroWarning(ctx context.Context, m *models.MacroAnalysis) error {
	n.dispatch(ctx, msgMacroWarning, m)
	return nil
}

func (n *QueuedNotifier) DailySummary(ctx context.Context, res *models.RunResult) error {
	n.dispatch(ctx, msgDailySummary, res)
	return nil
}

func (n *QueuedNotifier) ReviewList(ctx context.Context, recs []*models.SignalRecord, prices map[string]float64) error {
	n.dispatch(ctx, msgReviewList, reviewListPayload{Records: recs, Prices: prices})
	return nil
}

func (n *QueuedNotifier) Stats(ctx context.Context, st *models.SignalStatistics) error {
	n.dispatch(ctx, msgStats, st)
	return nil
}

func (n *QueuedNotifier) ErrorAlert(ctx context.Context, runErr error) error {
	n.dispatch(ctx, msgErrorAlert, errorPayload{Message: runErr.Error()})
	return nil
}

func (n *QueuedNotifier) Startup(ctx context.Context, watchlistSize int, llmAvailable bool) error {
	n.dispatch(ctx, msgStartup, startupPayload{WatchlistSize: watchlistSize, LLMAvailable: llmAvailable})
	return nil
}

func (n *QueuedNotifier) dispatch(ctx context.Context, msgType string, payload interface{}) {
	err := n.queue.Enqueue(ctx, msgType, payload)
	if err == nil {
		return
	}
	n.log.Warn("notification queue unavailable, sending inline",
		logger.String("type", msgType), logger.Error(err))
	if err := n.handle[msgType](ctx, payload); err != nil {
		n.log.Warn("inline notification failed",
			logger.String("type", msgType), logger.Error(err))
	}
}

// notifyJob adapts one handler func to the queue.Job interface.
type notifyJob struct {
	typ string
	fn  func(ctx context.Context, payload interface{}) error
}

func (j notifyJob) Name() string { return j.typ }
func (j notifyJob) Type() string { return j.typ }

func (j notifyJob) Handle(ctx context.Context, payload interface{}) error {
	return j.fn(ctx, payload)
}
