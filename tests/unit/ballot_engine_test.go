package unit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	ballotengine "agora/contexts/governance-core/ballot-engine"
	"agora/contexts/governance-core/ballot-engine/application/commands"
	"agora/contexts/governance-core/ballot-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/ballot-engine/domain/errors"
	httptransport "agora/contexts/governance-core/ballot-engine/transport/http"
)

const chair = "chair-1"

func newBallotModule(t *testing.T) ballotengine.Module {
	t.Helper()
	module := ballotengine.NewInMemoryModule(nil)
	if _, err := module.Handler.Sessions.Initialize(context.Background(), commands.InitializeCommand{
		Authority: chair,
	}); err != nil {
		t.Fatalf("initialize session: %v", err)
	}
	return module
}

func admitAll(t *testing.T, module ballotengine.Module, identities ...string) {
	t.Helper()
	ctx := context.Background()
	for _, identity := range identities {
		if _, err := module.Handler.AdmitHandler(ctx, chair, httptransport.AdmitRequest{Identity: identity}); err != nil {
			t.Fatalf("admit %s: %v", identity, err)
		}
	}
}

func openSubmission(t *testing.T, module ballotengine.Module) {
	t.Helper()
	if _, err := module.Handler.OpenProposalSubmissionHandler(context.Background(), chair); err != nil {
		t.Fatalf("open proposal submission: %v", err)
	}
}

func advanceToVoting(t *testing.T, module ballotengine.Module) {
	t.Helper()
	ctx := context.Background()
	if _, err := module.Handler.CloseProposalSubmissionHandler(ctx, chair); err != nil {
		t.Fatalf("close proposal submission: %v", err)
	}
	if _, err := module.Handler.OpenVotingHandler(ctx, chair); err != nil {
		t.Fatalf("open voting: %v", err)
	}
}

func finishRound(t *testing.T, module ballotengine.Module) httptransport.TallyResponse {
	t.Helper()
	ctx := context.Background()
	if _, err := module.Handler.CloseVotingHandler(ctx, chair); err != nil {
		t.Fatalf("close voting: %v", err)
	}
	tally, err := module.Handler.TallyHandler(ctx, chair)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	return tally
}

func TestBallotHappyPathThreeParticipants(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice", "bob", "carol")
	openSubmission(t, module)

	view, err := module.Handler.CurrentRoundHandler(ctx)
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if view.ProposalCount != 1 {
		t.Fatalf("expected only the placeholder at index 0 after opening, got %d proposals", view.ProposalCount)
	}

	for i, submission := range []struct {
		identity string
		text     string
	}{
		{"alice", "extend the deadline"},
		{"bob", "keep the deadline"},
		{"carol", "split the milestone"},
	} {
		resp, err := module.Handler.SubmitProposalHandler(ctx, submission.identity, httptransport.SubmitProposalRequest{Text: submission.text})
		if err != nil {
			t.Fatalf("submit %q: %v", submission.text, err)
		}
		if resp.Index != uint64(i+1) {
			t.Fatalf("expected index %d for submission %d, got %d", i+1, i, resp.Index)
		}
	}

	advanceToVoting(t, module)
	for identity, index := range map[string]uint64{"alice": 1, "bob": 1, "carol": 2} {
		if _, err := module.Handler.CastVoteHandler(ctx, identity, httptransport.CastVoteRequest{ProposalIndex: index}); err != nil {
			t.Fatalf("vote %s -> %d: %v", identity, index, err)
		}
	}

	tally := finishRound(t, module)
	if tally.WinnerIndex != 1 {
		t.Fatalf("expected proposal 1 to win with two votes, got %d", tally.WinnerIndex)
	}

	winner, err := module.Handler.WinnerHandler(ctx)
	if err != nil {
		t.Fatalf("winner: %v", err)
	}
	if !winner.Decided || winner.WinnerIndex == nil || *winner.WinnerIndex != 1 {
		t.Fatalf("expected decided winner 1, got %+v", winner)
	}

	var voteSum uint64
	for index := uint64(0); index < 4; index++ {
		proposal, err := module.Handler.ProposalHandler(ctx, index)
		if err != nil {
			t.Fatalf("proposal %d: %v", index, err)
		}
		voteSum += proposal.VoteCount
	}
	if voted := module.Store.VotedParticipantCount(0); voteSum != voted {
		t.Fatalf("vote counts sum to %d but %d participants voted", voteSum, voted)
	}
}

func TestBallotEmptyRoundPlaceholderWins(t *testing.T) {
	module := newBallotModule(t)

	openSubmission(t, module)
	advanceToVoting(t, module)
	tally := finishRound(t, module)

	if tally.WinnerIndex != 0 {
		t.Fatalf("expected the index-0 placeholder to win a round with no votes, got %d", tally.WinnerIndex)
	}
}

func TestBallotTieResolvesToEarliestIndex(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice", "bob")
	openSubmission(t, module)
	for _, text := range []string{"option one", "option two"} {
		if _, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: text}); err != nil {
			t.Fatalf("submit %q: %v", text, err)
		}
	}
	advanceToVoting(t, module)
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", httptransport.CastVoteRequest{ProposalIndex: 2}); err != nil {
		t.Fatalf("alice vote: %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(ctx, "bob", httptransport.CastVoteRequest{ProposalIndex: 1}); err != nil {
		t.Fatalf("bob vote: %v", err)
	}

	tally := finishRound(t, module)
	if tally.WinnerIndex != 1 {
		t.Fatalf("expected tie to resolve to the earliest index 1, got %d", tally.WinnerIndex)
	}
}

func TestBallotDoubleVoteRejectedWithoutSideEffects(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice")
	openSubmission(t, module)
	if _, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: "only option"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	advanceToVoting(t, module)
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", httptransport.CastVoteRequest{ProposalIndex: 1}); err != nil {
		t.Fatalf("first vote: %v", err)
	}

	_, err := module.Handler.CastVoteHandler(ctx, "alice", httptransport.CastVoteRequest{ProposalIndex: 0})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	proposal, err := module.Handler.ProposalHandler(ctx, 1)
	if err != nil {
		t.Fatalf("proposal 1: %v", err)
	}
	if proposal.VoteCount != 1 {
		t.Fatalf("rejected second vote must not change counts, got %d", proposal.VoteCount)
	}
	placeholder, err := module.Handler.ProposalHandler(ctx, 0)
	if err != nil {
		t.Fatalf("proposal 0: %v", err)
	}
	if placeholder.VoteCount != 0 {
		t.Fatalf("rejected vote leaked onto index 0: %d", placeholder.VoteCount)
	}
}

func TestBallotSubmitOutsideSubmissionPhaseRejected(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice")

	// Submission not yet open.
	_, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: "too early"})
	if !errors.Is(err, domainerrors.ErrProposalSubmissionNotOpen) {
		t.Fatalf("expected ErrProposalSubmissionNotOpen before opening, got %v", err)
	}

	openSubmission(t, module)
	advanceToVoting(t, module)

	_, err = module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: "too late"})
	if !errors.Is(err, domainerrors.ErrProposalSubmissionNotOpen) {
		t.Fatalf("expected ErrProposalSubmissionNotOpen after closing, got %v", err)
	}
	view, err := module.Handler.CurrentRoundHandler(ctx)
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if view.ProposalCount != 1 {
		t.Fatalf("rejected submission must not change the sequence, got %d proposals", view.ProposalCount)
	}
}

func TestBallotProposalTextBounds(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice")
	openSubmission(t, module)

	_, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: "   "})
	if !errors.Is(err, domainerrors.ErrEmptyProposalText) {
		t.Fatalf("expected ErrEmptyProposalText, got %v", err)
	}

	_, err = module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: strings.Repeat("x", 1000)})
	if !errors.Is(err, domainerrors.ErrProposalTextTooLong) {
		t.Fatalf("expected ErrProposalTextTooLong at 1000 characters, got %v", err)
	}

	// 999 multi-byte runes are within bounds; the limit counts characters,
	// not bytes.
	if _, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: strings.Repeat("é", 999)}); err != nil {
		t.Fatalf("999-rune text should be accepted: %v", err)
	}
}

func TestBallotProposalCapacity(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice")
	openSubmission(t, module)

	// The placeholder occupies index 0, so 999 submissions fill the round.
	for i := 1; i <= 999; i++ {
		if _, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{
			Text: "option " + strconv.Itoa(i),
		}); err != nil {
			t.Fatalf("submission %d: %v", i, err)
		}
	}

	_, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: "one too many"})
	if !errors.Is(err, domainerrors.ErrTooManyProposals) {
		t.Fatalf("expected ErrTooManyProposals at capacity, got %v", err)
	}

	view, err := module.Handler.CurrentRoundHandler(ctx)
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if view.ProposalCount != 1000 {
		t.Fatalf("rejected submission must leave the round at capacity, got %d proposals", view.ProposalCount)
	}
}

func TestBallotVoteForUnknownIndexRejected(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice")
	openSubmission(t, module)
	advanceToVoting(t, module)

	_, err := module.Handler.CastVoteHandler(ctx, "alice", httptransport.CastVoteRequest{ProposalIndex: 5})
	if !errors.Is(err, domainerrors.ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
	if voted := module.Store.VotedParticipantCount(0); voted != 0 {
		t.Fatalf("rejected vote must not mark the participant as voted, got %d voters", voted)
	}
}

type failingVoteWriter struct{}

func (failingVoteWriter) SaveVote(context.Context, entities.Round, entities.Participant) error {
	return errors.New("vote write failed")
}

func TestBallotVoteWriteFailureLeavesNoPartialState(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice")
	openSubmission(t, module)
	if _, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: "only option"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	advanceToVoting(t, module)

	ballots := commands.BallotUseCase{
		Registry:     module.Store,
		Rounds:       module.Store,
		Participants: module.Store,
		Votes:        failingVoteWriter{},
		Outbox:       module.Store,
		Clock:        module.Store,
		IDGen:        module.Store,
	}
	if _, err := ballots.CastVote(ctx, commands.CastVoteCommand{Caller: "alice", ProposalIndex: 1}); err == nil {
		t.Fatalf("expected the vote write failure to surface")
	}

	proposal, err := module.Handler.ProposalHandler(ctx, 1)
	if err != nil {
		t.Fatalf("proposal 1: %v", err)
	}
	if proposal.VoteCount != 0 {
		t.Fatalf("failed write must not change counts, got %d", proposal.VoteCount)
	}
	participant, err := module.Handler.ParticipantHandler(ctx, "alice")
	if err != nil {
		t.Fatalf("participant lookup: %v", err)
	}
	if participant.HasVoted {
		t.Fatalf("failed write must not mark the participant as voted")
	}

	// The vote goes through once the store accepts it.
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", httptransport.CastVoteRequest{ProposalIndex: 1}); err != nil {
		t.Fatalf("retry vote: %v", err)
	}
}

func TestBallotAdmissionClosesOncePastFirstPhase(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	openSubmission(t, module)

	_, err := module.Handler.AdmitHandler(ctx, chair, httptransport.AdmitRequest{Identity: "late-joiner"})
	if !errors.Is(err, domainerrors.ErrAdmissionNotOpen) {
		t.Fatalf("expected ErrAdmissionNotOpen, got %v", err)
	}
}

func TestBallotPhaseSkipsRejected(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	if _, err := module.Handler.OpenVotingHandler(ctx, chair); !errors.Is(err, domainerrors.ErrProposalSubmissionNotClosed) {
		t.Fatalf("expected ErrProposalSubmissionNotClosed, got %v", err)
	}
	if _, err := module.Handler.CloseVotingHandler(ctx, chair); !errors.Is(err, domainerrors.ErrVotingNotOpen) {
		t.Fatalf("expected ErrVotingNotOpen, got %v", err)
	}
	if _, err := module.Handler.TallyHandler(ctx, chair); !errors.Is(err, domainerrors.ErrVotingNotClosed) {
		t.Fatalf("expected ErrVotingNotClosed, got %v", err)
	}
	if _, err := module.Handler.CloseProposalSubmissionHandler(ctx, chair); !errors.Is(err, domainerrors.ErrProposalSubmissionNotOpen) {
		t.Fatalf("expected ErrProposalSubmissionNotOpen, got %v", err)
	}
}

func TestBallotRoundCreationRequiresTalliedRound(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	openSubmission(t, module)
	advanceToVoting(t, module)

	_, err := module.Handler.CreateRoundHandler(ctx, chair, httptransport.CreateRoundRequest{})
	if !errors.Is(err, domainerrors.ErrRoundNotFinished) {
		t.Fatalf("expected ErrRoundNotFinished during voting, got %v", err)
	}

	finishRound(t, module)
	round, err := module.Handler.CreateRoundHandler(ctx, chair, httptransport.CreateRoundRequest{})
	if err != nil {
		t.Fatalf("create round after tally: %v", err)
	}
	if round.RoundID != 1 {
		t.Fatalf("expected round id 1, got %d", round.RoundID)
	}
}

func TestBallotParticipantsDoNotCarryAcrossRounds(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice")
	openSubmission(t, module)
	advanceToVoting(t, module)
	finishRound(t, module)

	if _, err := module.Handler.CreateRoundHandler(ctx, chair, httptransport.CreateRoundRequest{}); err != nil {
		t.Fatalf("create round 1: %v", err)
	}
	openSubmission(t, module)

	_, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: "carried over"})
	if !errors.Is(err, domainerrors.ErrNotAParticipant) {
		t.Fatalf("expected ErrNotAParticipant in the new round, got %v", err)
	}

	participant, err := module.Handler.ParticipantHandler(ctx, "alice")
	if err != nil {
		t.Fatalf("participant lookup: %v", err)
	}
	if participant.Admitted {
		t.Fatalf("admission must not carry into round %d", participant.RoundID)
	}
}

func TestBallotRoundNames(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	view, err := module.Handler.CurrentRoundHandler(ctx)
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if view.Name != "Session 1" {
		t.Fatalf("expected generated name Session 1 for round 0, got %q", view.Name)
	}

	openSubmission(t, module)
	advanceToVoting(t, module)
	finishRound(t, module)
	round, err := module.Handler.CreateRoundHandler(ctx, chair, httptransport.CreateRoundRequest{Name: "Budget 2027"})
	if err != nil {
		t.Fatalf("create named round: %v", err)
	}
	if round.Name != "Budget 2027" {
		t.Fatalf("expected explicit name to be kept, got %q", round.Name)
	}
}

func TestBallotAuthorityGate(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	if _, err := module.Handler.AdmitHandler(ctx, "intruder", httptransport.AdmitRequest{Identity: "alice"}); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for admit, got %v", err)
	}
	if _, err := module.Handler.OpenProposalSubmissionHandler(ctx, "intruder"); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for phase change, got %v", err)
	}
	if _, err := module.Handler.CreateRoundHandler(ctx, "intruder", httptransport.CreateRoundRequest{}); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for round creation, got %v", err)
	}
}

func TestBallotTransferAuthority(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	if err := module.Handler.TransferAuthorityHandler(ctx, chair, httptransport.TransferAuthorityRequest{NewAuthority: "chair-2"}); err != nil {
		t.Fatalf("transfer authority: %v", err)
	}

	if _, err := module.Handler.AdmitHandler(ctx, chair, httptransport.AdmitRequest{Identity: "alice"}); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("previous authority must lose access, got %v", err)
	}
	if _, err := module.Handler.AdmitHandler(ctx, "chair-2", httptransport.AdmitRequest{Identity: "alice"}); err != nil {
		t.Fatalf("new authority admit: %v", err)
	}
}

func TestBallotInitializeRunsOnce(t *testing.T) {
	module := newBallotModule(t)

	_, err := module.Handler.Sessions.Initialize(context.Background(), commands.InitializeCommand{Authority: "someone-else"})
	if !errors.Is(err, domainerrors.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestBallotOutboxRecordsMutationsInOrder(t *testing.T) {
	module := newBallotModule(t)
	ctx := context.Background()

	admitAll(t, module, "alice")
	openSubmission(t, module)
	if _, err := module.Handler.SubmitProposalHandler(ctx, "alice", httptransport.SubmitProposalRequest{Text: "one"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	advanceToVoting(t, module)
	if _, err := module.Handler.CastVoteHandler(ctx, "alice", httptransport.CastVoteRequest{ProposalIndex: 1}); err != nil {
		t.Fatalf("vote: %v", err)
	}
	finishRound(t, module)

	expected := []string{
		commands.EventRoundCreated,
		commands.EventParticipantAdmitted,
		commands.EventPhaseChanged, // submission opened
		commands.EventProposalSubmitted,
		commands.EventPhaseChanged, // submission closed
		commands.EventPhaseChanged, // voting opened
		commands.EventVoteCast,
		commands.EventPhaseChanged, // voting closed
		commands.EventPhaseChanged, // tallied
	}
	outbox := module.Store.Outbox()
	if len(outbox) != len(expected) {
		t.Fatalf("expected %d notifications, got %d", len(expected), len(outbox))
	}
	for i, row := range outbox {
		if row.EventType != expected[i] {
			t.Fatalf("notification %d: expected %s, got %s", i, expected[i], row.EventType)
		}
		if row.Status != "pending" {
			t.Fatalf("notification %d should await the relay, got status %s", i, row.Status)
		}
	}
}

func TestBallotQueriesFailBeforeInitialization(t *testing.T) {
	module := ballotengine.NewInMemoryModule(nil)

	_, err := module.Handler.CurrentRoundHandler(context.Background())
	if !errors.Is(err, domainerrors.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}
