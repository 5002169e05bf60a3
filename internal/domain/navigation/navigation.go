package navigation

import (
	"encoding/json"
	"time"
)

// Strength tells followers how deliberate a navigation was.
type Strength string

const (
	StrengthStrong Strength = "strong"
	StrengthWeak   Strength = "weak"
)

func (s Strength) Valid() bool {
	return s == StrengthStrong || s == StrengthWeak
}

// TimeLayout is the wire format for every timestamp the relay emits.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in UTC with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// TenantState is the latest navigation known for one tenant. The four
// pointers are either all nil (empty) or all set (populated).
type TenantState struct {
	RemID          *string    `json:"remId"`
	Strength       *Strength  `json:"strength"`
	UpdatedAt      *time.Time `json:"updatedAt"`
	SourceClientID *string    `json:"sourceClientId"`
}

// EmptyState is the canonical state of a tenant nobody has published for.
func EmptyState() TenantState { return TenantState{} }

// NewState builds a populated state. Pointers never alias the caller's values.
func NewState(remID string, strength Strength, sourceClientID string, updatedAt time.Time) TenantState {
	return TenantState{
		RemID:          &remID,
		Strength:       &strength,
		UpdatedAt:      &updatedAt,
		SourceClientID: &sourceClientID,
	}
}

func (s TenantState) Populated() bool {
	return s.RemID != nil && s.Strength != nil && s.UpdatedAt != nil && s.SourceClientID != nil
}

func (s TenantState) Empty() bool {
	return s.RemID == nil && s.Strength == nil && s.UpdatedAt == nil && s.SourceClientID == nil
}

// Clone returns a deep copy so callers can't mutate a store's internals.
func (s TenantState) Clone() TenantState {
	var out TenantState
	if s.RemID != nil {
		v := *s.RemID
		out.RemID = &v
	}
	if s.Strength != nil {
		v := *s.Strength
		out.Strength = &v
	}
	if s.UpdatedAt != nil {
		v := *s.UpdatedAt
		out.UpdatedAt = &v
	}
	if s.SourceClientID != nil {
		v := *s.SourceClientID
		out.SourceClientID = &v
	}
	return out
}

// MarshalJSON keeps updatedAt in the relay's millisecond ISO format.
func (s TenantState) MarshalJSON() ([]byte, error) {
	var updatedAt *string
	if s.UpdatedAt != nil {
		v := FormatTime(*s.UpdatedAt)
		updatedAt = &v
	}
	return json.Marshal(stateWire{
		RemID:          s.RemID,
		Strength:       s.Strength,
		UpdatedAt:      updatedAt,
		SourceClientID: s.SourceClientID,
	})
}

type stateWire struct {
	RemID          *string   `json:"remId"`
	Strength       *Strength `json:"strength"`
	UpdatedAt      *string   `json:"updatedAt"`
	SourceClientID *string   `json:"sourceClientId"`
}

// ClientActivity caches the last update a device produced.
type ClientActivity struct {
	ClientID     string    `json:"clientId"`
	UserID       string    `json:"userId"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
	LastRemID    string    `json:"lastRemId"`
	LastStrength Strength  `json:"lastStrength"`
}

// Update is a validated /update payload.
type Update struct {
	RemID          string
	Strength       Strength
	UserID         string
	SourceClientID string
	SentAt         *time.Time
}
