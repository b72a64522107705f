package errors

import "errors"

var (
	ErrNotInitialized     = errors.New("ballot session is not initialized")
	ErrAlreadyInitialized = errors.New("ballot session is already initialized")

	ErrUnauthorized = errors.New("caller is not the session authority")

	ErrAdmissionNotOpen            = errors.New("participant admission is not open")
	ErrProposalSubmissionNotOpen   = errors.New("proposal submission is not open")
	ErrProposalSubmissionNotClosed = errors.New("proposal submission is not closed")
	ErrVotingNotOpen               = errors.New("voting is not open")
	ErrVotingNotClosed             = errors.New("voting is not closed")
	ErrRoundNotFinished            = errors.New("active round is not tallied yet")

	ErrAlreadyAdmitted = errors.New("participant is already admitted in this round")
	ErrAlreadyVoted    = errors.New("participant has already voted in this round")
	ErrNotAParticipant = errors.New("caller is not an admitted participant of this round")

	ErrInvalidIdentity     = errors.New("identity is required")
	ErrEmptyProposalText   = errors.New("proposal text is empty")
	ErrProposalTextTooLong = errors.New("proposal text exceeds maximum length")
	ErrTooManyProposals    = errors.New("round proposal capacity reached")

	ErrRoundNotFound    = errors.New("round not found")
	ErrProposalNotFound = errors.New("proposal not found")
)
