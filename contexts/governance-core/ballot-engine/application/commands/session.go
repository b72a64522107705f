package commands

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	application "agora/contexts/governance-core/ballot-engine/application"
	"agora/contexts/governance-core/ballot-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/ballot-engine/domain/errors"
	"agora/contexts/governance-core/ballot-engine/ports"
)

// InitializeCommand establishes the session authority and creates round 0.
type InitializeCommand struct {
	Authority string
	Name      string
}

// CreateRoundCommand opens the next round once the active one is tallied.
type CreateRoundCommand struct {
	Caller string
	Name   string
}

// AdmitCommand admits one participant into the active round.
type AdmitCommand struct {
	Caller   string
	Identity string
}

// TransferAuthorityCommand hands the authority role to another identity.
type TransferAuthorityCommand struct {
	Caller       string
	NewAuthority string
}

// PhaseChangeResult reports a completed workflow transition of the active
// round.
type PhaseChangeResult struct {
	Round entities.Round
	From  entities.Phase
	To    entities.Phase
}

// SessionUseCase orchestrates every authority-gated mutation: session
// initialization, round creation, participant admission, the five workflow
// phase transitions, and authority transfer. Each command checks the
// authority gate and the active round's phase before touching any state, so
// rejected calls leave the store untouched.
type SessionUseCase struct {
	Registry     ports.RegistryRepository
	Rounds       ports.RoundRepository
	Participants ports.ParticipantRepository
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator

	// WriteLock serializes command bodies so every mutation is applied
	// atomically against the shared store. Shared with BallotUseCase.
	WriteLock *sync.Mutex
	Logger    *slog.Logger
}

// Initialize creates round 0 and records the authority identity. It runs
// exactly once per store; later calls fail with ErrAlreadyInitialized.
func (uc SessionUseCase) Initialize(ctx context.Context, cmd InitializeCommand) (entities.Round, error) {
	logger := application.ResolveLogger(uc.Logger)
	unlock := lock(uc.WriteLock)
	defer unlock()

	authority := strings.TrimSpace(cmd.Authority)
	if authority == "" {
		return entities.Round{}, domainerrors.ErrInvalidIdentity
	}
	if _, found, err := uc.Registry.GetRegistry(ctx); err != nil {
		return entities.Round{}, err
	} else if found {
		return entities.Round{}, domainerrors.ErrAlreadyInitialized
	}

	now := resolveNow(uc.Clock)
	round := entities.Round{
		RoundID:   0,
		Name:      roundName(cmd.Name, 0),
		Phase:     entities.PhaseAdmittingParticipants,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Rounds.SaveRound(ctx, round); err != nil {
		return entities.Round{}, err
	}
	if err := uc.Registry.SaveRegistry(ctx, entities.Registry{
		Authority:     authority,
		ActiveRoundID: 0,
		TotalRounds:   1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		return entities.Round{}, err
	}
	if err := uc.appendEvent(ctx, EventRoundCreated, round.RoundID, now, map[string]any{
		"round_id": round.RoundID,
		"name":     round.Name,
	}); err != nil {
		return entities.Round{}, err
	}

	logger.Info("ballot session initialized",
		"event", "ballot_session_initialized",
		"module", "governance-core/ballot-engine",
		"layer", "application",
		"round_id", round.RoundID,
		"round_name", round.Name,
	)
	return round, nil
}

// CreateNextRound allocates the next sequential round id and makes it the
// active round. The active round must already be tallied.
func (uc SessionUseCase) CreateNextRound(ctx context.Context, cmd CreateRoundCommand) (entities.Round, error) {
	logger := application.ResolveLogger(uc.Logger)
	unlock := lock(uc.WriteLock)
	defer unlock()

	registry, err := uc.requireAuthority(ctx, cmd.Caller)
	if err != nil {
		return entities.Round{}, err
	}
	active, err := uc.Rounds.GetRound(ctx, registry.ActiveRoundID)
	if err != nil {
		return entities.Round{}, err
	}
	if !active.Phase.Terminal() {
		logger.Warn("round creation rejected before tally",
			"event", "ballot_round_create_rejected",
			"module", "governance-core/ballot-engine",
			"layer", "application",
			"active_round_id", active.RoundID,
			"active_phase", string(active.Phase),
		)
		return entities.Round{}, domainerrors.ErrRoundNotFinished
	}

	now := resolveNow(uc.Clock)
	round := entities.Round{
		RoundID:   registry.TotalRounds,
		Name:      roundName(cmd.Name, registry.TotalRounds),
		Phase:     entities.PhaseAdmittingParticipants,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Rounds.SaveRound(ctx, round); err != nil {
		return entities.Round{}, err
	}
	registry.ActiveRoundID = round.RoundID
	registry.TotalRounds++
	registry.UpdatedAt = now
	if err := uc.Registry.SaveRegistry(ctx, registry); err != nil {
		return entities.Round{}, err
	}
	if err := uc.appendEvent(ctx, EventRoundCreated, round.RoundID, now, map[string]any{
		"round_id": round.RoundID,
		"name":     round.Name,
	}); err != nil {
		return entities.Round{}, err
	}

	logger.Info("ballot round created",
		"event", "ballot_round_created",
		"module", "governance-core/ballot-engine",
		"layer", "application",
		"round_id", round.RoundID,
		"round_name", round.Name,
	)
	return round, nil
}

// Admit registers one identity as a participant of the active round while
// admission is open. Admission never carries over to later rounds.
func (uc SessionUseCase) Admit(ctx context.Context, cmd AdmitCommand) (entities.Participant, error) {
	logger := application.ResolveLogger(uc.Logger)
	unlock := lock(uc.WriteLock)
	defer unlock()

	identity := strings.TrimSpace(cmd.Identity)
	if identity == "" {
		return entities.Participant{}, domainerrors.ErrInvalidIdentity
	}
	registry, err := uc.requireAuthority(ctx, cmd.Caller)
	if err != nil {
		return entities.Participant{}, err
	}
	round, err := uc.Rounds.GetRound(ctx, registry.ActiveRoundID)
	if err != nil {
		return entities.Participant{}, err
	}
	if round.Phase != entities.PhaseAdmittingParticipants {
		return entities.Participant{}, domainerrors.ErrAdmissionNotOpen
	}
	if existing, found, err := uc.Participants.GetParticipant(ctx, round.RoundID, identity); err != nil {
		return entities.Participant{}, err
	} else if found && existing.Admitted {
		return entities.Participant{}, domainerrors.ErrAlreadyAdmitted
	}

	now := resolveNow(uc.Clock)
	participant := entities.Participant{
		RoundID:    round.RoundID,
		Identity:   identity,
		Admitted:   true,
		AdmittedAt: now,
	}
	if err := uc.Participants.SaveParticipant(ctx, participant); err != nil {
		return entities.Participant{}, err
	}
	if err := uc.appendEvent(ctx, EventParticipantAdmitted, round.RoundID, now, map[string]any{
		"round_id": round.RoundID,
		"identity": identity,
	}); err != nil {
		return entities.Participant{}, err
	}

	logger.Info("participant admitted",
		"event", "ballot_participant_admitted",
		"module", "governance-core/ballot-engine",
		"layer", "application",
		"round_id", round.RoundID,
		"identity", identity,
	)
	return participant, nil
}

// OpenProposalSubmission moves the active round from admission into proposal
// submission and seeds the sentinel proposal at index 0.
func (uc SessionUseCase) OpenProposalSubmission(ctx context.Context, caller string) (PhaseChangeResult, error) {
	return uc.advancePhase(ctx, caller,
		entities.PhaseAdmittingParticipants,
		entities.PhaseProposalSubmissionOpen,
		domainerrors.ErrAdmissionNotOpen,
		func(round *entities.Round) map[string]any {
			round.Proposals = append(round.Proposals, entities.Proposal{
				Index: 0,
				Text:  entities.SentinelProposalText,
			})
			return nil
		},
	)
}

// CloseProposalSubmission freezes the active round's proposal sequence.
func (uc SessionUseCase) CloseProposalSubmission(ctx context.Context, caller string) (PhaseChangeResult, error) {
	return uc.advancePhase(ctx, caller,
		entities.PhaseProposalSubmissionOpen,
		entities.PhaseProposalSubmissionClosed,
		domainerrors.ErrProposalSubmissionNotOpen,
		nil,
	)
}

// OpenVoting opens the active round for vote casting.
func (uc SessionUseCase) OpenVoting(ctx context.Context, caller string) (PhaseChangeResult, error) {
	return uc.advancePhase(ctx, caller,
		entities.PhaseProposalSubmissionClosed,
		entities.PhaseVotingOpen,
		domainerrors.ErrProposalSubmissionNotClosed,
		nil,
	)
}

// CloseVoting ends vote casting for the active round.
func (uc SessionUseCase) CloseVoting(ctx context.Context, caller string) (PhaseChangeResult, error) {
	return uc.advancePhase(ctx, caller,
		entities.PhaseVotingOpen,
		entities.PhaseVotingClosed,
		domainerrors.ErrVotingNotOpen,
		nil,
	)
}

// Tally computes the active round's winner and moves it into its terminal
// phase. Vote counts are immutable from here on.
func (uc SessionUseCase) Tally(ctx context.Context, caller string) (PhaseChangeResult, error) {
	return uc.advancePhase(ctx, caller,
		entities.PhaseVotingClosed,
		entities.PhaseTallied,
		domainerrors.ErrVotingNotClosed,
		func(round *entities.Round) map[string]any {
			round.WinnerIndex = round.WinningProposal()
			return map[string]any{"winner_index": round.WinnerIndex}
		},
	)
}

// TransferAuthority hands the authority role to another identity. This is the
// ownership-transfer surface used by external collaborators.
func (uc SessionUseCase) TransferAuthority(ctx context.Context, cmd TransferAuthorityCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	unlock := lock(uc.WriteLock)
	defer unlock()

	next := strings.TrimSpace(cmd.NewAuthority)
	if next == "" {
		return domainerrors.ErrInvalidIdentity
	}
	registry, err := uc.requireAuthority(ctx, cmd.Caller)
	if err != nil {
		return err
	}

	now := resolveNow(uc.Clock)
	previous := registry.Authority
	registry.Authority = next
	registry.UpdatedAt = now
	if err := uc.Registry.SaveRegistry(ctx, registry); err != nil {
		return err
	}
	if err := uc.appendEvent(ctx, EventAuthorityTransferred, registry.ActiveRoundID, now, map[string]any{
		"previous": previous,
		"next":     next,
	}); err != nil {
		return err
	}

	logger.Info("session authority transferred",
		"event", "ballot_authority_transferred",
		"module", "governance-core/ballot-engine",
		"layer", "application",
		"previous", previous,
		"next", next,
	)
	return nil
}

// advancePhase is the shared workflow step: authority gate, predecessor-phase
// check, optional round mutation, save, notification. mutate may return extra
// event payload fields (the tally transition reports the winner this way).
func (uc SessionUseCase) advancePhase(
	ctx context.Context,
	caller string,
	from entities.Phase,
	to entities.Phase,
	notReady error,
	mutate func(*entities.Round) map[string]any,
) (PhaseChangeResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	unlock := lock(uc.WriteLock)
	defer unlock()

	registry, err := uc.requireAuthority(ctx, caller)
	if err != nil {
		return PhaseChangeResult{}, err
	}
	round, err := uc.Rounds.GetRound(ctx, registry.ActiveRoundID)
	if err != nil {
		return PhaseChangeResult{}, err
	}
	// The round must sit exactly one step before the target phase; the
	// successor table owns what "one step" means.
	if round.Phase != from || !round.Phase.CanAdvanceTo(to) {
		logger.Warn("phase transition rejected",
			"event", "ballot_phase_transition_rejected",
			"module", "governance-core/ballot-engine",
			"layer", "application",
			"round_id", round.RoundID,
			"current_phase", string(round.Phase),
			"requested_phase", string(to),
		)
		return PhaseChangeResult{}, notReady
	}

	now := resolveNow(uc.Clock)
	round.Phase = to
	round.UpdatedAt = now
	data := map[string]any{
		"round_id":   round.RoundID,
		"from_phase": string(from),
		"to_phase":   string(to),
	}
	if mutate != nil {
		for key, value := range mutate(&round) {
			data[key] = value
		}
	}
	if err := uc.Rounds.SaveRound(ctx, round); err != nil {
		return PhaseChangeResult{}, err
	}
	if err := uc.appendEvent(ctx, EventPhaseChanged, round.RoundID, now, data); err != nil {
		return PhaseChangeResult{}, err
	}

	logger.Info("round phase changed",
		"event", "ballot_phase_changed",
		"module", "governance-core/ballot-engine",
		"layer", "application",
		"round_id", round.RoundID,
		"from_phase", string(from),
		"to_phase", string(to),
	)
	return PhaseChangeResult{Round: round, From: from, To: to}, nil
}

func (uc SessionUseCase) requireAuthority(ctx context.Context, caller string) (entities.Registry, error) {
	registry, err := loadRegistry(ctx, uc.Registry)
	if err != nil {
		return entities.Registry{}, err
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return entities.Registry{}, domainerrors.ErrInvalidIdentity
	}
	if caller != registry.Authority {
		return entities.Registry{}, domainerrors.ErrUnauthorized
	}
	return registry, nil
}

func (uc SessionUseCase) appendEvent(
	ctx context.Context,
	eventType string,
	roundID uint64,
	occurredAt time.Time,
	data map[string]any,
) error {
	return appendEvent(ctx, uc.Outbox, uc.IDGen, eventType, roundID, occurredAt, data)
}

func roundName(requested string, roundID uint64) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		return entities.DefaultRoundName(roundID)
	}
	return name
}

func loadRegistry(ctx context.Context, repo ports.RegistryRepository) (entities.Registry, error) {
	registry, found, err := repo.GetRegistry(ctx)
	if err != nil {
		return entities.Registry{}, err
	}
	if !found {
		return entities.Registry{}, domainerrors.ErrNotInitialized
	}
	return registry, nil
}

// appendEvent writes one notification to the outbox. A nil outbox is treated
// as no-op so pure read/test wiring stays light.
func appendEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	idgen ports.IDGenerator,
	eventType string,
	roundID uint64,
	occurredAt time.Time,
	data map[string]any,
) error {
	if outbox == nil {
		return nil
	}
	eventID, err := idgen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newBallotEnvelope(eventID, eventType, roundID, occurredAt, data)
	if err != nil {
		return err
	}
	return outbox.AppendOutbox(ctx, envelope)
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}

func lock(mu *sync.Mutex) func() {
	if mu == nil {
		return func() {}
	}
	mu.Lock()
	return mu.Unlock
}
