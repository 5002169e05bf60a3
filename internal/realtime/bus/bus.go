package bus

import (
	"context"
	"time"

	"github.com/yungbote/navrelay/internal/domain/navigation"
)

// Envelope is an accepted update as shared between relay replicas.
type Envelope struct {
	Origin         string              `json:"origin"`
	UserID         string              `json:"userId"`
	RemID          string              `json:"remId"`
	Strength       navigation.Strength `json:"strength"`
	SourceClientID string              `json:"sourceClientId"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	// StartForwarder delivers envelopes published by other replicas until ctx
	// is done. Envelopes from this replica are filtered out.
	StartForwarder(ctx context.Context, onMsg func(env Envelope)) error
	Close() error
}
