// Package ledger hands computed split amounts to the principal's financial
// ledger collaborator. Posting and settlement are the collaborator's
// concern; the engine only reports what each side earned.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"demarc/pkg/domain"
)

// Entry is one split computation handed to the ledger.
type Entry struct {
	LinkID         domain.LinkID    `json:"link_id"`
	PartnerID      domain.PartnerID `json:"partner_id"`
	Kind           string           `json:"kind"`
	PartnerShare   decimal.Decimal  `json:"partner_share"`
	PrincipalShare decimal.Decimal  `json:"principal_share"`
	IsSelfSale     bool             `json:"is_self_sale"`
	PostedAt       time.Time        `json:"posted_at"`
}

// Poster receives split entries.
type Poster interface {
	Post(ctx context.Context, e Entry) error
}
