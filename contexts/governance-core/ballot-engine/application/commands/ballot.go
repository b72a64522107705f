package commands

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	application "agora/contexts/governance-core/ballot-engine/application"
	"agora/contexts/governance-core/ballot-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/ballot-engine/domain/errors"
	"agora/contexts/governance-core/ballot-engine/ports"
)

// SubmitProposalCommand appends one option to the active round.
type SubmitProposalCommand struct {
	Caller string
	Text   string
}

type SubmitProposalResult struct {
	RoundID  uint64
	Proposal entities.Proposal
}

// CastVoteCommand records the caller's single vote for one proposal index.
type CastVoteCommand struct {
	Caller        string
	ProposalIndex uint64
}

type CastVoteResult struct {
	RoundID     uint64
	Proposal    entities.Proposal
	Participant entities.Participant
}

// BallotUseCase carries the participant-facing mutations: proposal
// submission and vote casting. Both require the caller to be an admitted
// participant of the active round and both are gated by that round's phase.
type BallotUseCase struct {
	Registry     ports.RegistryRepository
	Rounds       ports.RoundRepository
	Participants ports.ParticipantRepository
	Votes        ports.VoteWriter
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator

	// WriteLock is shared with SessionUseCase so all mutations across the
	// session are fully serialized.
	WriteLock *sync.Mutex
	Logger    *slog.Logger
}

// SubmitProposal appends a proposal at the next free index of the active
// round while submission is open. The sentinel holds index 0, so real
// submissions start at index 1.
func (uc BallotUseCase) SubmitProposal(ctx context.Context, cmd SubmitProposalCommand) (SubmitProposalResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	unlock := lock(uc.WriteLock)
	defer unlock()

	caller := strings.TrimSpace(cmd.Caller)
	if caller == "" {
		return SubmitProposalResult{}, domainerrors.ErrInvalidIdentity
	}
	registry, err := loadRegistry(ctx, uc.Registry)
	if err != nil {
		return SubmitProposalResult{}, err
	}
	round, err := uc.Rounds.GetRound(ctx, registry.ActiveRoundID)
	if err != nil {
		return SubmitProposalResult{}, err
	}
	if err := uc.requireParticipant(ctx, round.RoundID, caller); err != nil {
		return SubmitProposalResult{}, err
	}
	if round.Phase != entities.PhaseProposalSubmissionOpen {
		logger.Warn("proposal submission rejected",
			"event", "ballot_proposal_rejected",
			"module", "governance-core/ballot-engine",
			"layer", "application",
			"round_id", round.RoundID,
			"phase", string(round.Phase),
			"identity", caller,
		)
		return SubmitProposalResult{}, domainerrors.ErrProposalSubmissionNotOpen
	}

	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return SubmitProposalResult{}, domainerrors.ErrEmptyProposalText
	}
	if utf8.RuneCountInString(text) > entities.MaxProposalTextLength {
		return SubmitProposalResult{}, domainerrors.ErrProposalTextTooLong
	}
	if round.ProposalCount() >= entities.MaxProposalsPerRound {
		return SubmitProposalResult{}, domainerrors.ErrTooManyProposals
	}

	now := resolveNow(uc.Clock)
	proposal := entities.Proposal{
		Index: round.ProposalCount(),
		Text:  text,
	}
	round.Proposals = append(round.Proposals, proposal)
	round.UpdatedAt = now
	if err := uc.Rounds.SaveRound(ctx, round); err != nil {
		return SubmitProposalResult{}, err
	}
	if err := appendEvent(ctx, uc.Outbox, uc.IDGen, EventProposalSubmitted, round.RoundID, now, map[string]any{
		"round_id":       round.RoundID,
		"proposal_index": proposal.Index,
	}); err != nil {
		return SubmitProposalResult{}, err
	}

	logger.Info("proposal submitted",
		"event", "ballot_proposal_submitted",
		"module", "governance-core/ballot-engine",
		"layer", "application",
		"round_id", round.RoundID,
		"proposal_index", proposal.Index,
		"identity", caller,
	)
	return SubmitProposalResult{RoundID: round.RoundID, Proposal: proposal}, nil
}

// CastVote records the caller's vote: the participant's voted index is fixed
// irreversibly and the target proposal's count grows by exactly one. This is
// the only place vote counts change, which keeps the per-round sum of counts
// equal to the number of participants that voted.
func (uc BallotUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	unlock := lock(uc.WriteLock)
	defer unlock()

	caller := strings.TrimSpace(cmd.Caller)
	if caller == "" {
		return CastVoteResult{}, domainerrors.ErrInvalidIdentity
	}
	registry, err := loadRegistry(ctx, uc.Registry)
	if err != nil {
		return CastVoteResult{}, err
	}
	round, err := uc.Rounds.GetRound(ctx, registry.ActiveRoundID)
	if err != nil {
		return CastVoteResult{}, err
	}
	participant, found, err := uc.Participants.GetParticipant(ctx, round.RoundID, caller)
	if err != nil {
		return CastVoteResult{}, err
	}
	if !found || !participant.Admitted {
		return CastVoteResult{}, domainerrors.ErrNotAParticipant
	}
	if round.Phase != entities.PhaseVotingOpen {
		logger.Warn("vote rejected outside voting phase",
			"event", "ballot_vote_rejected",
			"module", "governance-core/ballot-engine",
			"layer", "application",
			"round_id", round.RoundID,
			"phase", string(round.Phase),
			"identity", caller,
		)
		return CastVoteResult{}, domainerrors.ErrVotingNotOpen
	}
	if participant.HasVoted {
		return CastVoteResult{}, domainerrors.ErrAlreadyVoted
	}
	if cmd.ProposalIndex >= round.ProposalCount() {
		return CastVoteResult{}, domainerrors.ErrProposalNotFound
	}

	now := resolveNow(uc.Clock)
	round.Proposals[cmd.ProposalIndex].VoteCount++
	round.UpdatedAt = now
	participant.HasVoted = true
	participant.VotedProposal = cmd.ProposalIndex
	participant.VotedAt = &now
	// Round counts and the participant's voted flag must land together; a
	// partial write would desync the count sum from the voter tally.
	if err := uc.Votes.SaveVote(ctx, round, participant); err != nil {
		return CastVoteResult{}, err
	}
	if err := appendEvent(ctx, uc.Outbox, uc.IDGen, EventVoteCast, round.RoundID, now, map[string]any{
		"round_id":       round.RoundID,
		"identity":       caller,
		"proposal_index": cmd.ProposalIndex,
	}); err != nil {
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "ballot_vote_cast",
		"module", "governance-core/ballot-engine",
		"layer", "application",
		"round_id", round.RoundID,
		"proposal_index", cmd.ProposalIndex,
		"identity", caller,
	)
	return CastVoteResult{
		RoundID:     round.RoundID,
		Proposal:    round.Proposals[cmd.ProposalIndex],
		Participant: participant,
	}, nil
}

func (uc BallotUseCase) requireParticipant(ctx context.Context, roundID uint64, identity string) error {
	participant, found, err := uc.Participants.GetParticipant(ctx, roundID, identity)
	if err != nil {
		return err
	}
	if !found || !participant.Admitted {
		return domainerrors.ErrNotAParticipant
	}
	return nil
}
