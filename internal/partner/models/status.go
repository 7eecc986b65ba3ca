package models

// Status is the operational lifecycle state of a partner account.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusActive          Status = "active"
	StatusSuspended       Status = "suspended"
	StatusTerminated      Status = "terminated"
)

// CanTransitionTo reports whether the operational state machine permits
// moving from the current status to the target.
//
// Allowed edges:
//
//	pending_approval → active
//	active           → suspended, terminated
//	suspended        → active, terminated
//	pending_approval → suspended
//
// terminated is terminal.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPendingApproval:
		return target == StatusActive || target == StatusSuspended
	case StatusActive:
		return target == StatusSuspended || target == StatusTerminated
	case StatusSuspended:
		return target == StatusActive || target == StatusTerminated
	case StatusTerminated:
		return false
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusActive, StatusSuspended, StatusTerminated:
		return true
	}
	return false
}

// ExclusivityStatus is the partner's standing with respect to continued
// exclusive rights. It is orthogonal to the operational Status: a suspended
// partner can still hold exclusivity, and a revoked partner can keep trading.
type ExclusivityStatus string

const (
	ExclusivityActive  ExclusivityStatus = "active"
	ExclusivityWarning ExclusivityStatus = "warning"
	ExclusivityRevoked ExclusivityStatus = "revoked"
)

// CanTransitionTo permits active → warning → revoked and active → revoked.
// revoked is terminal for exclusivity, not for the account.
func (s ExclusivityStatus) CanTransitionTo(target ExclusivityStatus) bool {
	switch s {
	case ExclusivityActive:
		return target == ExclusivityWarning || target == ExclusivityRevoked
	case ExclusivityWarning:
		return target == ExclusivityRevoked || target == ExclusivityWarning
	case ExclusivityRevoked:
		return false
	}
	return false
}

// ExclusivityImpact is the sanction a failed performance evaluation or a
// confirmed fraud finding applies to a partner's exclusivity standing.
type ExclusivityImpact string

const (
	ImpactNone           ExclusivityImpact = "none"
	ImpactWarning        ExclusivityImpact = "warning"
	ImpactPartialLoss    ExclusivityImpact = "partial_loss"
	ImpactFullRevocation ExclusivityImpact = "full_revocation"
)

func ParseExclusivityImpact(raw string) (ExclusivityImpact, bool) {
	switch ExclusivityImpact(raw) {
	case ImpactNone, ImpactWarning, ImpactPartialLoss, ImpactFullRevocation:
		return ExclusivityImpact(raw), true
	}
	return "", false
}
