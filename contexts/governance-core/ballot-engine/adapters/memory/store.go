package memory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"agora/contexts/governance-core/ballot-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/ballot-engine/domain/errors"
	"agora/contexts/governance-core/ballot-engine/ports"

	"github.com/google/uuid"
)

type participantKey struct {
	roundID  uint64
	identity string
}

// Store is the in-memory implementation of every ballot-engine port, used by
// tests and local runs. It also serves as Clock and IDGenerator.
type Store struct {
	mu sync.RWMutex

	registry    entities.Registry
	hasRegistry bool

	rounds       map[uint64]entities.Round
	participants map[participantKey]entities.Participant
	outbox       []ports.OutboxMessage
}

func NewStore() *Store {
	return &Store{
		rounds:       make(map[uint64]entities.Round),
		participants: make(map[participantKey]entities.Participant),
	}
}

func (s *Store) GetRegistry(_ context.Context) (entities.Registry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasRegistry {
		return entities.Registry{}, false, nil
	}
	return s.registry, true, nil
}

func (s *Store) SaveRegistry(_ context.Context, registry entities.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = registry
	s.hasRegistry = true
	return nil
}

func (s *Store) GetRound(_ context.Context, roundID uint64) (entities.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	round, ok := s.rounds[roundID]
	if !ok {
		return entities.Round{}, domainerrors.ErrRoundNotFound
	}
	return cloneRound(round), nil
}

func (s *Store) SaveRound(_ context.Context, round entities.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[round.RoundID] = cloneRound(round)
	return nil
}

func (s *Store) GetParticipant(_ context.Context, roundID uint64, identity string) (entities.Participant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[participantKey{roundID: roundID, identity: strings.TrimSpace(identity)}]
	if !ok {
		return entities.Participant{}, false, nil
	}
	return participant, true, nil
}

func (s *Store) SaveParticipant(_ context.Context, participant entities.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{roundID: participant.RoundID, identity: strings.TrimSpace(participant.Identity)}
	s.participants[key] = participant
	return nil
}

// SaveVote commits the round's counts and the participant's voted state under
// one lock acquisition.
func (s *Store) SaveVote(_ context.Context, round entities.Round, participant entities.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[round.RoundID] = cloneRound(round)
	key := participantKey{roundID: participant.RoundID, identity: strings.TrimSpace(participant.Identity)}
	s.participants[key] = participant
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, ports.OutboxMessage{
		OutboxID:  uuid.NewString(),
		EventType: event.EventType,
		Payload:   payload,
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ports.OutboxMessage, 0, limit)
	for _, row := range s.outbox {
		if row.Status != "pending" {
			continue
		}
		items = append(items, row)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].OutboxID == outboxID {
			s.outbox[i].Status = "published"
			s.outbox[i].PublishedAt = &publishedAt
			return nil
		}
	}
	return nil
}

// Outbox returns a snapshot of every appended notification in append order.
// Test helper.
func (s *Store) Outbox() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.OutboxMessage(nil), s.outbox...)
}

// VotedParticipantCount reports how many participants of a round have voted.
// Test helper for the vote-sum invariant.
func (s *Store) VotedParticipantCount(roundID uint64) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count uint64
	for key, participant := range s.participants {
		if key.roundID == roundID && participant.HasVoted {
			count++
		}
	}
	return count
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// cloneRound copies the proposal slice so callers never share backing arrays
// with committed state; rejected commands must leave the store untouched.
func cloneRound(round entities.Round) entities.Round {
	cloned := round
	cloned.Proposals = append([]entities.Proposal(nil), round.Proposals...)
	return cloned
}
