package ledger

import (
	"context"
	"log/slog"
)

// LogPoster records ledger entries in the structured log. Stand-in sink
// until the real ledger collaborator is wired.
type LogPoster struct {
	logger *slog.Logger
}

func NewLogPoster(logger *slog.Logger) *LogPoster {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPoster{logger: logger}
}

func (p *LogPoster) Post(ctx context.Context, e Entry) error {
	p.logger.InfoContext(ctx, "ledger entry posted",
		slog.String("link_id", e.LinkID.String()),
		slog.String("partner_id", e.PartnerID.String()),
		slog.String("kind", e.Kind),
		slog.String("partner_share", e.PartnerShare.String()),
		slog.String("principal_share", e.PrincipalShare.String()),
		slog.Bool("is_self_sale", e.IsSelfSale))
	return nil
}
