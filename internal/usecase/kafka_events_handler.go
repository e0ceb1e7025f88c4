package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	applogger "RiskPulse/pkg/logger"
)

// KafkaEventsHandler scores entity events arriving on a Kafka topic. Used
// when an upstream system publishes events instead of pushing them over
// WebSocket.
type KafkaEventsHandler struct {
	topic     string
	processor *EventProcessor
	logger    *applogger.Logger
}

func NewKafkaEventsHandler(topic string, processor *EventProcessor, logger *applogger.Logger) *KafkaEventsHandler {
	return &KafkaEventsHandler{topic: topic, processor: processor, logger: logger}
}

func (h *KafkaEventsHandler) Topic() string { return h.topic }

type kafkaEvent struct {
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	Features   map[string]any `json:"features"`
	Timestamp  int64          `json:"ts"` // ms, optional
}

func (h *KafkaEventsHandler) Handle(ctx context.Context, data []byte) error {
	var raw kafkaEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if raw.EntityID == "" || raw.EntityType == "" {
		return fmt.Errorf("event missing entity identity")
	}

	ts := time.Now().UTC()
	if raw.Timestamp > 0 {
		ts = time.UnixMilli(raw.Timestamp).UTC()
	}

	ev := &models.MarketEvent{
		EntityID:   raw.EntityID,
		EntityType: raw.EntityType,
		Features:   models.FeatureSet(raw.Features),
		Timestamp:  ts,
	}
	if err := h.processor.Process(ctx, ev); err != nil {
		return fmt.Errorf("process %s: %w", ev.EntityID, err)
	}
	return nil
}
