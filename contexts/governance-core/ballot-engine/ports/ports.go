package ports

import (
	"context"
	"encoding/json"
	"time"

	"agora/contexts/governance-core/ballot-engine/domain/entities"
)

// RegistryRepository owns the single session registry row: authority
// identity, active round pointer, total round count.
type RegistryRepository interface {
	GetRegistry(ctx context.Context) (entities.Registry, bool, error)
	SaveRegistry(ctx context.Context, registry entities.Registry) error
}

type RoundRepository interface {
	GetRound(ctx context.Context, roundID uint64) (entities.Round, error)
	SaveRound(ctx context.Context, round entities.Round) error
}

// ParticipantRepository stores participants under the composite key
// {round id, identity}; state from one round is never visible in another.
type ParticipantRepository interface {
	GetParticipant(ctx context.Context, roundID uint64, identity string) (entities.Participant, bool, error)
	SaveParticipant(ctx context.Context, participant entities.Participant) error
}

// EventEnvelope is the canonical notification shape appended to the outbox
// after every successful mutation and relayed to the event bus.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID    string
	EventType   string
	Payload     []byte
	Status      string // pending, published
	RetryCount  int
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// VoteWriter persists both sides of a cast vote in one write: the round's
// updated counts and the participant's voted state commit together or not at
// all, keeping the vote-count sum equal to the number of voters.
type VoteWriter interface {
	SaveVote(ctx context.Context, round entities.Round, participant entities.Participant) error
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

type OutboxRepository interface {
	OutboxWriter
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
