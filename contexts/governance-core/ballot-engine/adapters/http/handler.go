package httpadapter

import (
	"context"
	"log/slog"

	"agora/contexts/governance-core/ballot-engine/application/commands"
	"agora/contexts/governance-core/ballot-engine/application/queries"
	httptransport "agora/contexts/governance-core/ballot-engine/transport/http"
)

// Handler maps transport DTOs onto commands and queries. The platform HTTP
// server resolves the caller identity before calling in.
type Handler struct {
	Sessions commands.SessionUseCase
	Ballots  commands.BallotUseCase
	Results  queries.ResultsUseCase
	Logger   *slog.Logger
}

// @Summary Create the next round
// @Description Opens the next sequential round once the active one is tallied.
// @Tags rounds
// @Param X-User-Id header string true "Caller identity (authority)"
// @Param request body http.CreateRoundRequest true "Round name (optional)"
// @Success 201 {object} http.RoundResponse
// @Failure 409 {object} http.ErrorResponse
// @Router /api/ballot/v1/rounds [post]
func (h Handler) CreateRoundHandler(ctx context.Context, caller string, req httptransport.CreateRoundRequest) (httptransport.RoundResponse, error) {
	round, err := h.Sessions.CreateNextRound(ctx, commands.CreateRoundCommand{
		Caller: caller,
		Name:   req.Name,
	})
	if err != nil {
		return httptransport.RoundResponse{}, err
	}
	return httptransport.RoundResponse{
		RoundID: round.RoundID,
		Name:    round.Name,
		Phase:   string(round.Phase),
	}, nil
}

// @Summary Current round view
// @Tags rounds
// @Success 200 {object} http.CurrentRoundResponse
// @Router /api/ballot/v1/rounds/current [get]
func (h Handler) CurrentRoundHandler(ctx context.Context) (httptransport.CurrentRoundResponse, error) {
	view, err := h.Results.CurrentRound(ctx)
	if err != nil {
		return httptransport.CurrentRoundResponse{}, err
	}
	resp := httptransport.CurrentRoundResponse{
		RoundID:       view.RoundID,
		Name:          view.Name,
		Phase:         string(view.Phase),
		ProposalCount: view.ProposalCount,
	}
	if view.Tallied {
		winner := view.WinnerIndex
		resp.WinnerIndex = &winner
	}
	return resp, nil
}

// @Summary Admit a participant into the active round
// @Tags participants
// @Param X-User-Id header string true "Caller identity (authority)"
// @Param request body http.AdmitRequest true "Participant identity"
// @Success 201 {object} http.ParticipantResponse
// @Failure 409 {object} http.ErrorResponse
// @Router /api/ballot/v1/participants [post]
func (h Handler) AdmitHandler(ctx context.Context, caller string, req httptransport.AdmitRequest) (httptransport.ParticipantResponse, error) {
	participant, err := h.Sessions.Admit(ctx, commands.AdmitCommand{
		Caller:   caller,
		Identity: req.Identity,
	})
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return participantResponse(participant.RoundID, participant.Identity, participant.Admitted, participant.HasVoted, participant.VotedProposal), nil
}

// @Summary Look up a participant of the active round
// @Tags participants
// @Param identity path string true "Participant identity"
// @Success 200 {object} http.ParticipantResponse
// @Router /api/ballot/v1/participants/{identity} [get]
func (h Handler) ParticipantHandler(ctx context.Context, identity string) (httptransport.ParticipantResponse, error) {
	participant, err := h.Results.Participant(ctx, identity)
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return participantResponse(participant.RoundID, participant.Identity, participant.Admitted, participant.HasVoted, participant.VotedProposal), nil
}

// @Summary Submit a proposal
// @Tags proposals
// @Param X-User-Id header string true "Caller identity (admitted participant)"
// @Param request body http.SubmitProposalRequest true "Proposal text"
// @Success 201 {object} http.ProposalResponse
// @Failure 400 {object} http.ErrorResponse
// @Router /api/ballot/v1/proposals [post]
func (h Handler) SubmitProposalHandler(ctx context.Context, caller string, req httptransport.SubmitProposalRequest) (httptransport.ProposalResponse, error) {
	result, err := h.Ballots.SubmitProposal(ctx, commands.SubmitProposalCommand{
		Caller: caller,
		Text:   req.Text,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return httptransport.ProposalResponse{
		RoundID:   result.RoundID,
		Index:     result.Proposal.Index,
		Text:      result.Proposal.Text,
		VoteCount: result.Proposal.VoteCount,
	}, nil
}

// @Summary Get a proposal by index
// @Tags proposals
// @Param index path integer true "Proposal index"
// @Success 200 {object} http.ProposalResponse
// @Failure 404 {object} http.ErrorResponse
// @Router /api/ballot/v1/proposals/{index} [get]
func (h Handler) ProposalHandler(ctx context.Context, index uint64) (httptransport.ProposalResponse, error) {
	view, err := h.Results.CurrentRound(ctx)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	proposal, err := h.Results.Proposal(ctx, index)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return httptransport.ProposalResponse{
		RoundID:   view.RoundID,
		Index:     proposal.Index,
		Text:      proposal.Text,
		VoteCount: proposal.VoteCount,
	}, nil
}

// @Summary Cast a vote
// @Tags votes
// @Param X-User-Id header string true "Caller identity (admitted participant)"
// @Param request body http.CastVoteRequest true "Proposal index"
// @Success 201 {object} http.VoteResponse
// @Failure 409 {object} http.ErrorResponse
// @Router /api/ballot/v1/votes [post]
func (h Handler) CastVoteHandler(ctx context.Context, caller string, req httptransport.CastVoteRequest) (httptransport.VoteResponse, error) {
	result, err := h.Ballots.CastVote(ctx, commands.CastVoteCommand{
		Caller:        caller,
		ProposalIndex: req.ProposalIndex,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		RoundID:       result.RoundID,
		Identity:      result.Participant.Identity,
		ProposalIndex: result.Proposal.Index,
		VoteCount:     result.Proposal.VoteCount,
	}, nil
}

// @Summary Open proposal submission
// @Tags phases
// @Param X-User-Id header string true "Caller identity (authority)"
// @Success 200 {object} http.PhaseChangeResponse
// @Failure 409 {object} http.ErrorResponse
// @Router /api/ballot/v1/phases/proposals/open [post]
func (h Handler) OpenProposalSubmissionHandler(ctx context.Context, caller string) (httptransport.PhaseChangeResponse, error) {
	return phaseChangeResponse(h.Sessions.OpenProposalSubmission(ctx, caller))
}

// @Summary Close proposal submission
// @Tags phases
// @Param X-User-Id header string true "Caller identity (authority)"
// @Success 200 {object} http.PhaseChangeResponse
// @Failure 409 {object} http.ErrorResponse
// @Router /api/ballot/v1/phases/proposals/close [post]
func (h Handler) CloseProposalSubmissionHandler(ctx context.Context, caller string) (httptransport.PhaseChangeResponse, error) {
	return phaseChangeResponse(h.Sessions.CloseProposalSubmission(ctx, caller))
}

// @Summary Open voting
// @Tags phases
// @Param X-User-Id header string true "Caller identity (authority)"
// @Success 200 {object} http.PhaseChangeResponse
// @Failure 409 {object} http.ErrorResponse
// @Router /api/ballot/v1/phases/voting/open [post]
func (h Handler) OpenVotingHandler(ctx context.Context, caller string) (httptransport.PhaseChangeResponse, error) {
	return phaseChangeResponse(h.Sessions.OpenVoting(ctx, caller))
}

// @Summary Close voting
// @Tags phases
// @Param X-User-Id header string true "Caller identity (authority)"
// @Success 200 {object} http.PhaseChangeResponse
// @Failure 409 {object} http.ErrorResponse
// @Router /api/ballot/v1/phases/voting/close [post]
func (h Handler) CloseVotingHandler(ctx context.Context, caller string) (httptransport.PhaseChangeResponse, error) {
	return phaseChangeResponse(h.Sessions.CloseVoting(ctx, caller))
}

// @Summary Tally the active round
// @Tags phases
// @Param X-User-Id header string true "Caller identity (authority)"
// @Success 200 {object} http.TallyResponse
// @Failure 409 {object} http.ErrorResponse
// @Router /api/ballot/v1/phases/tally [post]
func (h Handler) TallyHandler(ctx context.Context, caller string) (httptransport.TallyResponse, error) {
	result, err := h.Sessions.Tally(ctx, caller)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return httptransport.TallyResponse{
		RoundID:     result.Round.RoundID,
		FromPhase:   string(result.From),
		ToPhase:     string(result.To),
		WinnerIndex: result.Round.WinnerIndex,
	}, nil
}

// @Summary Winner of the active round
// @Tags rounds
// @Success 200 {object} http.WinnerResponse
// @Router /api/ballot/v1/winner [get]
func (h Handler) WinnerHandler(ctx context.Context) (httptransport.WinnerResponse, error) {
	view, err := h.Results.Winner(ctx)
	if err != nil {
		return httptransport.WinnerResponse{}, err
	}
	resp := httptransport.WinnerResponse{
		RoundID: view.RoundID,
		Phase:   string(view.Phase),
		Decided: view.Decided,
	}
	if view.Decided {
		winner := view.WinnerIndex
		resp.WinnerIndex = &winner
	}
	return resp, nil
}

// @Summary Transfer the session authority
// @Tags authority
// @Param X-User-Id header string true "Caller identity (authority)"
// @Param request body http.TransferAuthorityRequest true "New authority identity"
// @Success 204
// @Failure 403 {object} http.ErrorResponse
// @Router /api/ballot/v1/authority/transfer [post]
func (h Handler) TransferAuthorityHandler(ctx context.Context, caller string, req httptransport.TransferAuthorityRequest) error {
	return h.Sessions.TransferAuthority(ctx, commands.TransferAuthorityCommand{
		Caller:       caller,
		NewAuthority: req.NewAuthority,
	})
}

func phaseChangeResponse(result commands.PhaseChangeResult, err error) (httptransport.PhaseChangeResponse, error) {
	if err != nil {
		return httptransport.PhaseChangeResponse{}, err
	}
	return httptransport.PhaseChangeResponse{
		RoundID:   result.Round.RoundID,
		FromPhase: string(result.From),
		ToPhase:   string(result.To),
	}, nil
}

func participantResponse(roundID uint64, identity string, admitted bool, hasVoted bool, votedProposal uint64) httptransport.ParticipantResponse {
	resp := httptransport.ParticipantResponse{
		RoundID:  roundID,
		Identity: identity,
		Admitted: admitted,
		HasVoted: hasVoted,
	}
	if hasVoted {
		voted := votedProposal
		resp.VotedProposal = &voted
	}
	return resp
}
