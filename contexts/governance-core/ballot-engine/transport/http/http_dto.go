package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateRoundRequest struct {
	Name string `json:"name,omitempty"`
}

type RoundResponse struct {
	RoundID uint64 `json:"round_id"`
	Name    string `json:"name"`
	Phase   string `json:"phase"`
}

type CurrentRoundResponse struct {
	RoundID       uint64  `json:"round_id"`
	Name          string  `json:"name"`
	Phase         string  `json:"phase"`
	ProposalCount uint64  `json:"proposal_count"`
	WinnerIndex   *uint64 `json:"winner_index,omitempty"`
}

type AdmitRequest struct {
	Identity string `json:"identity"`
}

type ParticipantResponse struct {
	RoundID       uint64  `json:"round_id"`
	Identity      string  `json:"identity"`
	Admitted      bool    `json:"admitted"`
	HasVoted      bool    `json:"has_voted"`
	VotedProposal *uint64 `json:"voted_proposal,omitempty"`
}

type SubmitProposalRequest struct {
	Text string `json:"text"`
}

type ProposalResponse struct {
	RoundID   uint64 `json:"round_id"`
	Index     uint64 `json:"index"`
	Text      string `json:"text"`
	VoteCount uint64 `json:"vote_count"`
}

type CastVoteRequest struct {
	ProposalIndex uint64 `json:"proposal_index"`
}

type VoteResponse struct {
	RoundID       uint64 `json:"round_id"`
	Identity      string `json:"identity"`
	ProposalIndex uint64 `json:"proposal_index"`
	VoteCount     uint64 `json:"vote_count"`
}

type PhaseChangeResponse struct {
	RoundID   uint64 `json:"round_id"`
	FromPhase string `json:"from_phase"`
	ToPhase   string `json:"to_phase"`
}

type TallyResponse struct {
	RoundID     uint64 `json:"round_id"`
	FromPhase   string `json:"from_phase"`
	ToPhase     string `json:"to_phase"`
	WinnerIndex uint64 `json:"winner_index"`
}

type WinnerResponse struct {
	RoundID     uint64  `json:"round_id"`
	Phase       string  `json:"phase"`
	WinnerIndex *uint64 `json:"winner_index,omitempty"`
	Decided     bool    `json:"decided"`
}

type TransferAuthorityRequest struct {
	NewAuthority string `json:"new_authority"`
}
