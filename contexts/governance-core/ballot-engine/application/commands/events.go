package commands

import (
	"encoding/json"
	"strconv"
	"time"

	"agora/contexts/governance-core/ballot-engine/ports"
)

const (
	EventRoundCreated         = "ballot.round.created"
	EventParticipantAdmitted  = "ballot.participant.admitted"
	EventPhaseChanged         = "ballot.phase.changed"
	EventProposalSubmitted    = "ballot.proposal.submitted"
	EventVoteCast             = "ballot.vote.cast"
	EventAuthorityTransferred = "ballot.authority.transferred"
)

// newBallotEnvelope builds canonical envelopes for command-side
// notifications. Events are partitioned by round so round-scoped consumers
// observe mutations in order.
func newBallotEnvelope(
	eventID string,
	eventType string,
	roundID uint64,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "ballot-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "round_id",
		PartitionKey:     strconv.FormatUint(roundID, 10),
		Data:             payload,
	}, nil
}
