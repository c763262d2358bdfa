package auth

import "fmt"

// DeclinedError reports that the user declined the authorization in the
// browser.
type DeclinedError struct{}

func (e *DeclinedError) Error() string { return "authorization declined" }

// TimedOutError reports that no authorization came back in time.
type TimedOutError struct{}

func (e *TimedOutError) Error() string { return "authorization timed out" }

// OutdatedTokenError reports a token the services no longer accept, a
// fresh login is required.
type OutdatedTokenError struct{}

func (e *OutdatedTokenError) Error() string { return "outdated token" }

// DoesNotOwnGameError reports an authenticated account without the game.
type DoesNotOwnGameError struct{}

func (e *DoesNotOwnGameError) Error() string { return "account does not own the game" }

// StatusError reports an unexpected HTTP status from the authentication
// services.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("authentication failed with status %d", e.Status)
}

// UnknownError carries a service message that maps to no other kind.
type UnknownError struct {
	Message string
}

func (e *UnknownError) Error() string { return e.Message }

// CorruptedError reports a session database that cannot be decoded. The
// file can be moved away before retrying.
type CorruptedError struct {
	File string
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("session database %s is corrupted", e.File)
}

// WriteError reports a failed session database save.
type WriteError struct {
	File string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("saving session database %s: %v", e.File, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
