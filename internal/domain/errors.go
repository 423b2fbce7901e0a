package domain

import "errors"

var (
	// ErrNotFound is returned by the document store for missing documents.
	ErrNotFound = errors.New("document not found")
	// ErrEmailTaken is returned when registering an already-known email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrBadCredentials covers both unknown email and wrong password.
	ErrBadCredentials = errors.New("invalid email or password")
	// ErrRoundNotFound indicates an unknown or unseeded round id.
	ErrRoundNotFound = errors.New("round not found")
	// ErrRoundInactive indicates the round has not been opened by an organizer.
	ErrRoundInactive = errors.New("round is not active")
	// ErrBadRoundPassword is returned when the round gate password is wrong.
	ErrBadRoundPassword = errors.New("incorrect round password")
	// ErrAttemptNotFound indicates the participant has not started the round.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAlreadyCompleted rejects mutations on a finished attempt.
	ErrAlreadyCompleted = errors.New("attempt already completed")
	// ErrPreviewPhase rejects code saves while the preview countdown runs.
	ErrPreviewPhase = errors.New("round is still in preview phase")
	// ErrQuestionNotFound indicates a submitted question id is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAlreadyAnswered rejects a second answer to the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrScreenLocked blocks round interaction after too many violations.
	ErrScreenLocked = errors.New("screen locked by proctor")
	// ErrBadPassphrase is returned for a wrong organizer unlock passphrase.
	ErrBadPassphrase = errors.New("incorrect unlock passphrase")
	// ErrNotConfigured marks rounds missing their content (questions, link).
	ErrNotConfigured = errors.New("round not configured, contact an organizer")
)
