package entities

import "testing"

func TestPhaseOrdinalAndAdvance(t *testing.T) {
	sequence := []Phase{
		PhaseAdmittingParticipants,
		PhaseProposalSubmissionOpen,
		PhaseProposalSubmissionClosed,
		PhaseVotingOpen,
		PhaseVotingClosed,
		PhaseTallied,
	}

	for i, phase := range sequence {
		if !phase.Valid() {
			t.Fatalf("%s should be valid", phase)
		}
		if phase.Ordinal() != i {
			t.Fatalf("%s ordinal: expected %d, got %d", phase, i, phase.Ordinal())
		}
		for j, next := range sequence {
			expected := j == i+1
			if phase.CanAdvanceTo(next) != expected {
				t.Fatalf("%s -> %s: expected %v", phase, next, expected)
			}
		}
	}

	if Phase("paused").Valid() {
		t.Fatalf("unknown phase must not be valid")
	}
	if !PhaseTallied.Terminal() {
		t.Fatalf("tallied is the terminal phase")
	}
	if PhaseVotingClosed.Terminal() {
		t.Fatalf("voting_closed is not terminal")
	}
}

func TestWinningProposalTieBreaksToEarliestIndex(t *testing.T) {
	round := Round{Proposals: []Proposal{
		{Index: 0, Text: SentinelProposalText, VoteCount: 0},
		{Index: 1, Text: "a", VoteCount: 2},
		{Index: 2, Text: "b", VoteCount: 3},
		{Index: 3, Text: "c", VoteCount: 3},
	}}
	if winner := round.WinningProposal(); winner != 2 {
		t.Fatalf("expected index 2 to win the tie, got %d", winner)
	}
}

func TestWinningProposalEmptyRound(t *testing.T) {
	round := Round{Proposals: []Proposal{
		{Index: 0, Text: SentinelProposalText},
		{Index: 1, Text: "a"},
		{Index: 2, Text: "b"},
	}}
	if winner := round.WinningProposal(); winner != 0 {
		t.Fatalf("a round with no votes falls back to index 0, got %d", winner)
	}
}

func TestDefaultRoundName(t *testing.T) {
	if name := DefaultRoundName(0); name != "Session 1" {
		t.Fatalf("round 0: got %q", name)
	}
	if name := DefaultRoundName(41); name != "Session 42" {
		t.Fatalf("round 41: got %q", name)
	}
}
