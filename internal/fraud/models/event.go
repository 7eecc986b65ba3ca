package models

import (
	"encoding/json"
	"time"

	"demarc/pkg/domain"
)

// Type is the closed set of detectable anomalies.
type Type string

const (
	TypeTerritoryOverreach  Type = "territory-overreach"
	TypeUnauthorizedSale    Type = "unauthorized-sale"
	TypeOverlapBreach       Type = "overlap-breach"
	TypeSelfSplitAttempt    Type = "self-split-attempt"
	TypeDataManipulation    Type = "data-manipulation"
	TypePrivilegeEscalation Type = "privilege-escalation"
)

var validTypes = map[Type]bool{
	TypeTerritoryOverreach:  true,
	TypeUnauthorizedSale:    true,
	TypeOverlapBreach:       true,
	TypeSelfSplitAttempt:    true,
	TypeDataManipulation:    true,
	TypePrivilegeEscalation: true,
}

func ParseType(raw string) (Type, bool) {
	t := Type(raw)
	return t, validTypes[t]
}

// Severity scores an anomaly.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var validSeverities = map[Severity]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(raw)
	return s, validSeverities[s]
}

// Status tracks the investigation lifecycle of an event.
type Status string

const (
	StatusDetected      Status = "detected"
	StatusInvestigating Status = "investigating"
	StatusConfirmed     Status = "confirmed"
	StatusFalsePositive Status = "false_positive"
	StatusResolved      Status = "resolved"
	StatusEscalated     Status = "escalated"
)

// Action is the automatic response chosen at detection time.
type Action string

const (
	ActionNone     Action = "none"
	ActionWarn     Action = "warn"
	ActionEscalate Action = "escalate"
	ActionSuspend  Action = "suspend"
)

// FraudEvent is one detected anomaly with its automatic response.
type FraudEvent struct {
	ID          domain.FraudEventID `json:"id"`
	PartnerID   domain.PartnerID    `json:"partner_id"`
	Type        Type                `json:"type"`
	Severity    Severity            `json:"severity"`
	Status      Status              `json:"status"`
	Evidence    json.RawMessage     `json:"evidence,omitempty"`
	ActionTaken Action              `json:"action_taken"`
	CreatedAt   time.Time           `json:"created_at"`
}
