package unit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"agora/contexts/governance-core/ballot-engine/adapters/memory"
	"agora/contexts/governance-core/ballot-engine/application/workers"
	"agora/contexts/governance-core/ballot-engine/ports"
	httptransport "agora/contexts/governance-core/ballot-engine/transport/http"
)

type capturingPublisher struct {
	topics []string
	events []ports.EventEnvelope
	fail   bool
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func TestBallotOutboxRelayPublishesPendingRows(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice")
	openSubmission(t, module)

	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run: %v", err)
	}

	// Round creation, admission, phase change.
	if len(publisher.events) != 3 {
		t.Fatalf("expected 3 published notifications, got %d", len(publisher.events))
	}
	for i, event := range publisher.events {
		if publisher.topics[i] != event.EventType {
			t.Fatalf("notification %d published on topic %s instead of %s", i, publisher.topics[i], event.EventType)
		}
		if event.SourceService != "ballot-engine" {
			t.Fatalf("notification %d carries source %q", i, event.SourceService)
		}
	}

	// A second cycle finds nothing pending.
	publisher.events = nil
	publisher.topics = nil
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("second relay run: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("published rows must not be re-delivered, got %d", len(publisher.events))
	}
}

func TestBallotOutboxRelayKeepsRowsPendingOnPublishFailure(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	if _, err := module.Handler.AdmitHandler(ctx, chair, httptransport.AdmitRequest{Identity: "alice"}); err != nil {
		t.Fatalf("admit: %v", err)
	}

	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: &capturingPublisher{fail: true},
	}
	if err := relay.RunOnce(ctx); err == nil {
		t.Fatalf("expected relay to surface the publish failure")
	}

	for _, row := range module.Store.Outbox() {
		if row.Status != "pending" {
			t.Fatalf("failed publish must leave rows pending, got %s", row.Status)
		}
	}
}

type stubSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
}

func (s *stubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	if s.handlers == nil {
		s.handlers = map[string]func(context.Context, ports.EventEnvelope) error{}
	}
	s.handlers[topic] = handler
	return nil
}

func TestBallotRoundArchiveConsumerEmitsArchiveOnTally(t *testing.T) {
	store := memory.NewStore()
	sub := &stubSubscriber{}
	consumer := workers.RoundArchiveConsumer{
		Subscriber: sub,
		Outbox:     store,
		Clock:      store,
	}

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start round archive consumer: %v", err)
	}
	handler := sub.handlers["ballot.phase.changed"]
	if handler == nil {
		t.Fatalf("expected ballot.phase.changed handler registration")
	}

	// An intermediate phase change produces nothing.
	payload, _ := json.Marshal(map[string]any{
		"round_id": uint64(2),
		"to_phase": "voting_open",
	})
	if err := handler(context.Background(), ports.EventEnvelope{
		EventID:   "event-1",
		EventType: "ballot.phase.changed",
		Data:      payload,
	}); err != nil {
		t.Fatalf("intermediate phase handler: %v", err)
	}
	if rows := store.Outbox(); len(rows) != 0 {
		t.Fatalf("intermediate phase changes must not be archived, got %d rows", len(rows))
	}

	payload, _ = json.Marshal(map[string]any{
		"round_id":     uint64(2),
		"to_phase":     "tallied",
		"winner_index": uint64(3),
	})
	if err := handler(context.Background(), ports.EventEnvelope{
		EventID:      "event-2",
		EventType:    "ballot.phase.changed",
		PartitionKey: "2",
		Data:         payload,
	}); err != nil {
		t.Fatalf("tally handler: %v", err)
	}

	rows := store.Outbox()
	if len(rows) != 1 || rows[0].EventType != workers.EventRoundArchived {
		t.Fatalf("expected one round-archived row, got %+v", rows)
	}
	var archived struct {
		Data struct {
			RoundID     uint64 `json:"round_id"`
			WinnerIndex uint64 `json:"winner_index"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rows[0].Payload, &archived); err != nil {
		t.Fatalf("decode archived envelope: %v", err)
	}
	if archived.Data.RoundID != 2 || archived.Data.WinnerIndex != 3 {
		t.Fatalf("archived payload mismatch: %+v", archived.Data)
	}
}

func TestBallotRoundArchiveConsumerDisabledRegistersNothing(t *testing.T) {
	sub := &stubSubscriber{}
	consumer := workers.RoundArchiveConsumer{
		Subscriber: sub,
		Outbox:     memory.NewStore(),
		Disabled:   true,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start disabled consumer: %v", err)
	}
	if len(sub.handlers) != 0 {
		t.Fatalf("disabled consumer must not subscribe, got %d handlers", len(sub.handlers))
	}
}

func TestBallotOutboxRelayHonorsBatchSize(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice", "bob", "carol")

	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
		BatchSize: 2,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run: %v", err)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(publisher.events))
	}

	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("second relay run: %v", err)
	}
	if len(publisher.events) != 4 {
		t.Fatalf("expected 4 total after second cycle, got %d", len(publisher.events))
	}
}
