package queries

import (
	"context"
	"strings"

	"agora/contexts/governance-core/ballot-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/ballot-engine/domain/errors"
	"agora/contexts/governance-core/ballot-engine/ports"
)

// RoundView is the read-only projection of the active round.
type RoundView struct {
	RoundID       uint64
	Name          string
	Phase         entities.Phase
	ProposalCount uint64
	WinnerIndex   uint64
	Tallied       bool
}

// WinnerView is the direct accessor for the active round's winner and phase.
type WinnerView struct {
	RoundID     uint64
	Phase       entities.Phase
	WinnerIndex uint64
	Decided     bool
}

// ResultsUseCase serves every read-only projection. Queries take no caller
// identity: they are open to anyone and have no side effects.
type ResultsUseCase struct {
	Registry     ports.RegistryRepository
	Rounds       ports.RoundRepository
	Participants ports.ParticipantRepository
}

// CurrentRound projects id, name, phase, proposal count and (once tallied)
// the winning index of the active round.
func (uc ResultsUseCase) CurrentRound(ctx context.Context) (RoundView, error) {
	round, err := uc.activeRound(ctx)
	if err != nil {
		return RoundView{}, err
	}
	view := RoundView{
		RoundID:       round.RoundID,
		Name:          round.Name,
		Phase:         round.Phase,
		ProposalCount: round.ProposalCount(),
		Tallied:       round.Phase.Terminal(),
	}
	if view.Tallied {
		view.WinnerIndex = round.WinnerIndex
	}
	return view, nil
}

// Participant returns the participant record for an identity in the active
// round. Identities that were never admitted yield a zero-value record, not
// an error.
func (uc ResultsUseCase) Participant(ctx context.Context, identity string) (entities.Participant, error) {
	registry, found, err := uc.Registry.GetRegistry(ctx)
	if err != nil {
		return entities.Participant{}, err
	}
	if !found {
		return entities.Participant{}, domainerrors.ErrNotInitialized
	}
	identity = strings.TrimSpace(identity)
	participant, found, err := uc.Participants.GetParticipant(ctx, registry.ActiveRoundID, identity)
	if err != nil {
		return entities.Participant{}, err
	}
	if !found {
		return entities.Participant{
			RoundID:  registry.ActiveRoundID,
			Identity: identity,
		}, nil
	}
	return participant, nil
}

// Proposal returns the proposal at index in the active round.
func (uc ResultsUseCase) Proposal(ctx context.Context, index uint64) (entities.Proposal, error) {
	round, err := uc.activeRound(ctx)
	if err != nil {
		return entities.Proposal{}, err
	}
	if index >= round.ProposalCount() {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return round.Proposals[index], nil
}

// Winner exposes the active round's winning index together with its phase;
// Decided is false until the round is tallied.
func (uc ResultsUseCase) Winner(ctx context.Context) (WinnerView, error) {
	round, err := uc.activeRound(ctx)
	if err != nil {
		return WinnerView{}, err
	}
	view := WinnerView{
		RoundID: round.RoundID,
		Phase:   round.Phase,
		Decided: round.Phase.Terminal(),
	}
	if view.Decided {
		view.WinnerIndex = round.WinnerIndex
	}
	return view, nil
}

func (uc ResultsUseCase) activeRound(ctx context.Context) (entities.Round, error) {
	registry, found, err := uc.Registry.GetRegistry(ctx)
	if err != nil {
		return entities.Round{}, err
	}
	if !found {
		return entities.Round{}, domainerrors.ErrNotInitialized
	}
	return uc.Rounds.GetRound(ctx, registry.ActiveRoundID)
}
