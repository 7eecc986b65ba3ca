// Package split computes the partner/principal division of a fee or
// royalty. The computation is pure and never fails: self-dealing is not an
// error here, it is a result the caller (and the fraud engine) acts on.
package split

import (
	"github.com/shopspring/decimal"

	"demarc/internal/partner/models"
	"demarc/pkg/domain"
)

// Kind selects which configured percentage applies.
type Kind string

const (
	KindFee     Kind = "fee"
	KindRoyalty Kind = "royalty"
)

func ParseKind(raw string) (Kind, bool) {
	switch Kind(raw) {
	case KindFee, KindRoyalty:
		return Kind(raw), true
	}
	return "", false
}

// Result is the outcome of one split computation.
type Result struct {
	PartnerShare   decimal.Decimal `json:"partner_share"`
	PrincipalShare decimal.Decimal `json:"principal_share"`
	IsSelfSale     bool            `json:"is_self_sale"`
}

var hundred = decimal.NewFromInt(100)

// Calculate divides amount between partner and principal.
//
// The self-dealing check runs first and short-circuits: when the
// counterparty is the partner's own operating entity the partner share is
// zero and no percentage math is applied, regardless of configuration.
// The predicate is PartnerAccount.IsSelfEntity, the same guard the link
// manager uses, so the two checks cannot drift apart.
func Calculate(partner *models.PartnerAccount, amount decimal.Decimal, counterparty domain.EntityID, kind Kind) Result {
	if partner.IsSelfEntity(counterparty) {
		return Result{
			PartnerShare:   decimal.Zero,
			PrincipalShare: amount,
			IsSelfSale:     true,
		}
	}

	pct := partner.FeeSplitPct
	if kind == KindRoyalty {
		pct = partner.RoyaltySplitPct
	}

	partnerShare := amount.Mul(pct).Div(hundred)
	return Result{
		PartnerShare:   partnerShare,
		PrincipalShare: amount.Sub(partnerShare),
		IsSelfSale:     false,
	}
}
