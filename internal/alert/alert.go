// Package alert carries operator-facing notifications out of the engine.
// The engine only decides that an alert should fire; delivery is the
// notification collaborator's concern, hidden behind Notifier.
package alert

import (
	"context"
	"time"

	"demarc/pkg/domain"
)

// Priority orders alerts for the operator queue.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Alert is one operator-facing notification.
type Alert struct {
	PartnerID domain.PartnerID `json:"partner_id"`
	Priority  Priority         `json:"priority"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
}

// Notifier delivers alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}
