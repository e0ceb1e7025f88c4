package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/repository"
	"RiskPulse/pkg/ws"
)

// riskUpdateEnvelope is the broadcast message shape shared by every
// transport: the full assessment wrapped in a typed envelope.
func riskUpdateEnvelope(a *models.RiskAssessment) map[string]interface{} {
	return map[string]interface{}{
		"type": "risk_update",
		"data": a,
	}
}

// WSBroadcaster pushes risk updates to connected WebSocket subscribers.
type WSBroadcaster struct {
	hub *ws.Hub
}

var _ repository.Broadcaster = (*WSBroadcaster)(nil)

func NewWSBroadcaster(hub *ws.Hub) *WSBroadcaster {
	return &WSBroadcaster{hub: hub}
}

func (b *WSBroadcaster) BroadcastRiskUpdate(ctx context.Context, a *models.RiskAssessment) error {
	payload, err := json.Marshal(riskUpdateEnvelope(a))
	if err != nil {
		return fmt.Errorf("marshal risk update: %w", err)
	}
	return b.hub.Broadcast(payload)
}

// CompositeBroadcaster fans a risk update out to several transports. All
// transports are attempted; errors are joined.
type CompositeBroadcaster struct {
	targets []repository.Broadcaster
}

var _ repository.Broadcaster = (*CompositeBroadcaster)(nil)

func NewCompositeBroadcaster(targets ...repository.Broadcaster) *CompositeBroadcaster {
	return &CompositeBroadcaster{targets: targets}
}

func (b *CompositeBroadcaster) BroadcastRiskUpdate(ctx context.Context, a *models.RiskAssessment) error {
	var errs []error
	for _, t := range b.targets {
		if t == nil {
			continue
		}
		if err := t.BroadcastRiskUpdate(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
