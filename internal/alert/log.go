package alert

import (
	"context"
	"log/slog"
)

// LogNotifier writes alerts to the structured log. Default sink when no
// broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, a Alert) error {
	n.logger.WarnContext(ctx, "operator alert",
		slog.String("partner_id", a.PartnerID.String()),
		slog.String("priority", string(a.Priority)),
		slog.String("title", a.Title),
		slog.String("body", a.Body))
	return nil
}
