package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/governance-core/ballot-engine/application"
	"agora/contexts/governance-core/ballot-engine/domain/entities"
	"agora/contexts/governance-core/ballot-engine/ports"
)

const (
	phaseChangedTopic = "ballot.phase.changed"
	defaultArchiveCG  = "ballot-engine-archive-cg"

	// EventRoundArchived closes the round's event chain: it is emitted once
	// the tally notification arrives, carrying the final winner for archive
	// consumers that never track intermediate phases.
	EventRoundArchived = "ballot.round.archived"
)

// RoundArchiveConsumer listens for phase-change notifications on the bus and,
// when a round reaches its terminal phase, emits a round-archived event
// through the outbox. Replays are harmless: the archived event reuses the
// triggering event id, which the outbox deduplicates on.
type RoundArchiveConsumer struct {
	Subscriber    ports.EventSubscriber
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	ConsumerGroup string
	Disabled      bool
	Logger        *slog.Logger
}

// Start subscribes the archiver to the phase-change topic. The consumer group
// can be overridden for environment-specific deployment.
func (c RoundArchiveConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("round archive consumer disabled by feature flag",
			"event", "ballot_archive_consumer_disabled",
			"module", "governance-core/ballot-engine",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultArchiveCG
	}
	if err := c.Subscriber.Subscribe(ctx, phaseChangedTopic, group, c.handlePhaseChanged); err != nil {
		logger.Error("round archive consumer subscribe failed",
			"event", "ballot_archive_consumer_subscribe_failed",
			"module", "governance-core/ballot-engine",
			"layer", "worker",
			"topic", phaseChangedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("round archive consumer subscription active",
		"event", "ballot_archive_consumer_started",
		"module", "governance-core/ballot-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c RoundArchiveConsumer) handlePhaseChanged(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	var payload struct {
		RoundID     uint64 `json:"round_id"`
		ToPhase     string `json:"to_phase"`
		WinnerIndex uint64 `json:"winner_index"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("phase change payload decode failed",
			"event", "ballot_archive_decode_failed",
			"module", "governance-core/ballot-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if payload.ToPhase != string(entities.PhaseTallied) {
		return nil
	}

	data, err := json.Marshal(map[string]any{
		"round_id":     payload.RoundID,
		"winner_index": payload.WinnerIndex,
	})
	if err != nil {
		return err
	}
	archived := ports.EventEnvelope{
		EventID:          event.EventID + ":archived",
		EventType:        EventRoundArchived,
		OccurredAt:       c.now(),
		SourceService:    "ballot-engine",
		TraceID:          event.TraceID,
		SchemaVersion:    1,
		PartitionKeyPath: event.PartitionKeyPath,
		PartitionKey:     event.PartitionKey,
		Data:             data,
	}
	if err := c.Outbox.AppendOutbox(ctx, archived); err != nil {
		logger.Error("round archive append failed",
			"event", "ballot_archive_append_failed",
			"module", "governance-core/ballot-engine",
			"layer", "worker",
			"round_id", payload.RoundID,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("round archived",
		"event", "ballot_round_archived",
		"module", "governance-core/ballot-engine",
		"layer", "worker",
		"round_id", payload.RoundID,
		"winner_index", payload.WinnerIndex,
	)
	return nil
}

func (c RoundArchiveConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
