package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	ballotengine "agora/contexts/governance-core/ballot-engine"
	domainerrors "agora/contexts/governance-core/ballot-engine/domain/errors"
	ballothttp "agora/contexts/governance-core/ballot-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "agora/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	ballot ballotengine.Module
}

func New(ballot ballotengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		ballot: ballot,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /api/ballot/v1/rounds/current", s.handleCurrentRound)
	s.mux.HandleFunc("POST /api/ballot/v1/rounds", s.handleCreateRound)
	s.mux.HandleFunc("POST /api/ballot/v1/participants", s.handleAdmit)
	s.mux.HandleFunc("GET /api/ballot/v1/participants/{identity}", s.handleParticipant)
	s.mux.HandleFunc("POST /api/ballot/v1/proposals", s.handleSubmitProposal)
	s.mux.HandleFunc("GET /api/ballot/v1/proposals/{index}", s.handleProposal)
	s.mux.HandleFunc("POST /api/ballot/v1/votes", s.handleCastVote)
	s.mux.HandleFunc("POST /api/ballot/v1/phases/proposals/open", s.phaseHandler(s.ballot.Handler.OpenProposalSubmissionHandler))
	s.mux.HandleFunc("POST /api/ballot/v1/phases/proposals/close", s.phaseHandler(s.ballot.Handler.CloseProposalSubmissionHandler))
	s.mux.HandleFunc("POST /api/ballot/v1/phases/voting/open", s.phaseHandler(s.ballot.Handler.OpenVotingHandler))
	s.mux.HandleFunc("POST /api/ballot/v1/phases/voting/close", s.phaseHandler(s.ballot.Handler.CloseVotingHandler))
	s.mux.HandleFunc("POST /api/ballot/v1/phases/tally", s.handleTally)
	s.mux.HandleFunc("GET /api/ballot/v1/winner", s.handleWinner)
	s.mux.HandleFunc("POST /api/ballot/v1/authority/transfer", s.handleTransferAuthority)
}

func (s *Server) handleCurrentRound(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.CurrentRoundHandler(r.Context())
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req ballothttp.CreateRoundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ballot.Handler.CreateRoundHandler(r.Context(), caller, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAdmit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req ballothttp.AdmitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ballot.Handler.AdmitHandler(r.Context(), caller, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleParticipant(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.ParticipantHandler(r.Context(), r.PathValue("identity"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req ballothttp.SubmitProposalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ballot.Handler.SubmitProposalHandler(r.Context(), caller, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_index", "index must be a non-negative integer")
		return
	}
	resp, err := s.ballot.Handler.ProposalHandler(r.Context(), index)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req ballothttp.CastVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ballot.Handler.CastVoteHandler(r.Context(), caller, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	resp, err := s.ballot.Handler.TallyHandler(r.Context(), caller)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWinner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.WinnerHandler(r.Context())
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransferAuthority(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req ballothttp.TransferAuthorityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.ballot.Handler.TransferAuthorityHandler(r.Context(), caller, req); err != nil {
		writeBallotDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type phaseHandlerFunc func(ctx context.Context, caller string) (ballothttp.PhaseChangeResponse, error)

func (s *Server) phaseHandler(handle phaseHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerIdentity(w, r)
		if !ok {
			return
		}
		resp, err := handle(r.Context(), caller)
		if err != nil {
			writeBallotDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func callerIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := r.Header.Get("X-User-Id")
	if caller == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return false
	}
	return true
}

func writeBallotDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrUnauthorized):
		writeBallotError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, domainerrors.ErrNotAParticipant):
		writeBallotError(w, http.StatusForbidden, "not_a_participant", err.Error())
	case errors.Is(err, domainerrors.ErrAdmissionNotOpen):
		writeBallotError(w, http.StatusConflict, "admission_not_open", err.Error())
	case errors.Is(err, domainerrors.ErrProposalSubmissionNotOpen):
		writeBallotError(w, http.StatusConflict, "proposal_submission_not_open", err.Error())
	case errors.Is(err, domainerrors.ErrProposalSubmissionNotClosed):
		writeBallotError(w, http.StatusConflict, "proposal_submission_not_closed", err.Error())
	case errors.Is(err, domainerrors.ErrVotingNotOpen):
		writeBallotError(w, http.StatusConflict, "voting_not_open", err.Error())
	case errors.Is(err, domainerrors.ErrVotingNotClosed):
		writeBallotError(w, http.StatusConflict, "voting_not_closed", err.Error())
	case errors.Is(err, domainerrors.ErrRoundNotFinished):
		writeBallotError(w, http.StatusConflict, "round_not_finished", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyAdmitted):
		writeBallotError(w, http.StatusConflict, "already_admitted", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyVoted):
		writeBallotError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, domainerrors.ErrTooManyProposals):
		writeBallotError(w, http.StatusConflict, "too_many_proposals", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyInitialized):
		writeBallotError(w, http.StatusConflict, "already_initialized", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidIdentity):
		writeBallotError(w, http.StatusBadRequest, "invalid_identity", err.Error())
	case errors.Is(err, domainerrors.ErrEmptyProposalText):
		writeBallotError(w, http.StatusBadRequest, "empty_proposal_text", err.Error())
	case errors.Is(err, domainerrors.ErrProposalTextTooLong):
		writeBallotError(w, http.StatusBadRequest, "proposal_text_too_long", err.Error())
	case errors.Is(err, domainerrors.ErrProposalNotFound):
		writeBallotError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrRoundNotFound):
		writeBallotError(w, http.StatusNotFound, "round_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrNotInitialized):
		writeBallotError(w, http.StatusServiceUnavailable, "not_initialized", err.Error())
	default:
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
