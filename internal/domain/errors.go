package domain

import "errors"

// Join-time failures are reported to the requesting connection as an
// explicit rejection. Host-privilege failures never leave the process.
var (
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrWrongPassword   = errors.New("wrong password")
	ErrMeetingLocked   = errors.New("meeting is locked")
	ErrMeetingEnded    = errors.New("meeting has ended")
	ErrJoinInProgress  = errors.New("join already in progress")

	// ErrNotHost is swallowed by callers: a non-host issuing a host command
	// gets no reply at all.
	ErrNotHost = errors.New("caller is not the host")

	// ErrTargetNotFound is a benign no-op for approve/deny/remove on an
	// identifier that already left.
	ErrTargetNotFound = errors.New("target not in room")

	ErrNotParticipant = errors.New("caller is not a participant")
)
