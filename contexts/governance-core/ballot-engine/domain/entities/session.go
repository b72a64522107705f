package entities

import (
	"strconv"
	"time"
)

// Phase is the workflow stage of a round. Phases are traversed strictly
// forward, one step at a time, and never revisited within the same round.
type Phase string

const (
	PhaseAdmittingParticipants    Phase = "admitting_participants"
	PhaseProposalSubmissionOpen   Phase = "proposal_submission_open"
	PhaseProposalSubmissionClosed Phase = "proposal_submission_closed"
	PhaseVotingOpen               Phase = "voting_open"
	PhaseVotingClosed             Phase = "voting_closed"
	PhaseTallied                  Phase = "tallied"
)

// phaseOrder is the only legal traversal; transitions are single forward
// steps along this sequence.
var phaseOrder = []Phase{
	PhaseAdmittingParticipants,
	PhaseProposalSubmissionOpen,
	PhaseProposalSubmissionClosed,
	PhaseVotingOpen,
	PhaseVotingClosed,
	PhaseTallied,
}

func (p Phase) Valid() bool {
	return p.Ordinal() >= 0
}

// Ordinal returns the position of p in the workflow sequence, -1 for
// unknown values.
func (p Phase) Ordinal() int {
	for i, phase := range phaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

// CanAdvanceTo reports whether next is the immediate successor of p.
func (p Phase) CanAdvanceTo(next Phase) bool {
	current := p.Ordinal()
	return current >= 0 && current+1 < len(phaseOrder) && phaseOrder[current+1] == next
}

func (p Phase) Terminal() bool {
	return p == PhaseTallied
}

const (
	// MaxProposalsPerRound bounds a round's proposal sequence, sentinel
	// included.
	MaxProposalsPerRound = 1000
	// MaxProposalTextLength bounds proposal text, counted in runes.
	MaxProposalTextLength = 999
	// SentinelProposalText is the opaque placeholder occupying index 0 of
	// every round once proposal submission opens. It is not a real option
	// but it participates in tallying like any other proposal.
	SentinelProposalText = "---"
)

// Proposal is one votable option within a round, identified by its position
// in the round's ordered sequence.
type Proposal struct {
	Index     uint64
	Text      string
	VoteCount uint64
}

// Round is one complete, isolated instance of the
// admission -> proposal -> vote -> tally workflow. Rounds are never deleted.
type Round struct {
	RoundID     uint64
	Name        string
	Phase       Phase
	Proposals   []Proposal
	WinnerIndex uint64 // meaningful only once Phase == PhaseTallied
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r Round) ProposalCount() uint64 {
	return uint64(len(r.Proposals))
}

// WinningProposal scans the proposal sequence in index order and returns the
// index holding the maximum vote count. A later proposal displaces the
// tentative winner only with a strictly greater count, so ties resolve to the
// earliest index and the sentinel at index 0 wins a round with no votes.
func (r Round) WinningProposal() uint64 {
	var winner uint64
	var best uint64
	for _, proposal := range r.Proposals {
		if proposal.VoteCount > best {
			best = proposal.VoteCount
			winner = proposal.Index
		}
	}
	return winner
}

// Participant is an identity admitted into one specific round. Admission and
// voting state never carry over between rounds.
type Participant struct {
	RoundID       uint64
	Identity      string
	Admitted      bool
	HasVoted      bool
	VotedProposal uint64
	AdmittedAt    time.Time
	VotedAt       *time.Time
}

// Registry is the process-wide session state: the single authority identity,
// the active round pointer, and the total round count. It is written once at
// initialization and only mutated through session commands afterwards.
type Registry struct {
	Authority     string
	ActiveRoundID uint64
	TotalRounds   uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DefaultRoundName derives the generated "Session {ordinal}" name for a
// round id; round 0 is "Session 1".
func DefaultRoundName(roundID uint64) string {
	return "Session " + strconv.FormatUint(roundID+1, 10)
}
