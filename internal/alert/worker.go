package alert

import (
	"context"
	"log/slog"
	"time"

	"demarc/pkg/requestcontext"
)

// Publisher decouples alert emission from delivery: Emit never blocks the
// business transaction on a slow notifier. A full inbox drops the alert
// rather than stalling the caller; the drop is logged as evidence.
type Publisher struct {
	inbox  chan Alert
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{inbox: make(chan Alert, buffer), logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, a Alert) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = requestcontext.Now(ctx)
	}
	select {
	case p.inbox <- a:
	default:
		p.logger.ErrorContext(ctx, "alert inbox full, alert dropped",
			slog.String("partner_id", a.PartnerID.String()),
			slog.String("title", a.Title))
	}
}

// Worker drains the publisher's inbox into the configured notifier.
type Worker struct {
	inbox    <-chan Alert
	notifier Notifier
	logger   *slog.Logger
}

func NewWorker(p *Publisher, notifier Notifier, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{inbox: p.inbox, notifier: notifier, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-w.inbox:
			deliverCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := w.notifier.Notify(deliverCtx, a)
			cancel()
			if err != nil {
				w.logger.ErrorContext(ctx, "alert delivery failed",
					slog.String("partner_id", a.PartnerID.String()),
					slog.String("title", a.Title),
					slog.String("error", err.Error()))
			}
		}
	}
}
