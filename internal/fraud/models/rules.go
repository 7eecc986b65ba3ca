package models

import "demarc/internal/alert"

// DedupeWindow suppresses repeat detections of the same partner+type.
const DedupeWindowMinutes = 5

// suspendOnHigh lists the types whose high-severity detections suspend
// rather than escalate: deliberate manipulation rather than sloppy selling.
var suspendOnHigh = map[Type]bool{
	TypePrivilegeEscalation: true,
	TypeDataManipulation:    true,
	TypeSelfSplitAttempt:    true,
}

// ActionFor is the total mapping from (type, severity) to automatic action.
func ActionFor(t Type, severity Severity) Action {
	switch severity {
	case SeverityCritical:
		return ActionSuspend
	case SeverityHigh:
		if suspendOnHigh[t] {
			return ActionSuspend
		}
		return ActionEscalate
	case SeverityMedium:
		return ActionWarn
	case SeverityLow:
		return ActionNone
	}
	return ActionNone
}

// AlertPriorityFor reports whether a detection warrants an operator alert
// and at which priority. Only critical and high detections alert.
func AlertPriorityFor(severity Severity) (alert.Priority, bool) {
	switch severity {
	case SeverityCritical:
		return alert.PriorityUrgent, true
	case SeverityHigh:
		return alert.PriorityHigh, true
	}
	return "", false
}

// adminDenylist names administrative actions a partner must never invoke.
// Any attempt is unconditionally critical.
var adminDenylist = map[string]bool{
	"partner.approve":         true,
	"partner.reactivate":      true,
	"partner.terminate":       true,
	"territory.create":        true,
	"territory.deactivate":    true,
	"fraud.resolve":           true,
	"split.override":          true,
	"audit.snapshot.rewrite":  true,
	"exclusivity.reinstate":   true,
	"performance.target.edit": true,
}

// ClassifyAdminAction checks an attempted action against the denylist.
func ClassifyAdminAction(action string) (Type, Severity, bool) {
	if adminDenylist[action] {
		return TypePrivilegeEscalation, SeverityCritical, true
	}
	return "", "", false
}

// Bulk operation thresholds for one batch.
const (
	BulkReadThreshold   = 100
	BulkWriteThreshold  = 50
	BulkDeleteThreshold = 10
)

// ClassifyBulkOperation scores a batch against the thresholds. Deletes over
// threshold are always critical; reads and writes over threshold are high.
func ClassifyBulkOperation(reads, writes, deletes int) (Type, Severity, bool) {
	switch {
	case deletes > BulkDeleteThreshold:
		return TypeDataManipulation, SeverityCritical, true
	case writes > BulkWriteThreshold:
		return TypeDataManipulation, SeverityHigh, true
	case reads > BulkReadThreshold:
		return TypeDataManipulation, SeverityHigh, true
	}
	return "", "", false
}
