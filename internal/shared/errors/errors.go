package errors

import (
	"context"
	stderrors "errors"
	"net"

	"github.com/samber/oops"
)

// Error codes attached to oops errors so log lines can be grouped by failure class.
const (
	CodeValidation      = "validation"
	CodeTransientFetch  = "transient_fetch"
	CodePermanentSource = "permanent_source"
	CodeConnection      = "connection"
)

var (
	ErrMissingBotToken   = stderrors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrUnauthorized      = stderrors.New("unauthorized user")
	ErrCommunityNotFound = stderrors.New("community not found")
	ErrNotFound          = stderrors.New("not found")

	// ErrValidation marks malformed input (links, IPs). No state changes.
	ErrValidation = stderrors.New("validation failed")
	// ErrTransientFetch marks network, timeout and rate-limit failures. Retried next tick.
	ErrTransientFetch = stderrors.New("transient fetch failure")
	// ErrPermanentSource marks a misconfigured source, e.g. missing credentials.
	ErrPermanentSource = stderrors.New("source permanently unavailable")
	// ErrConnection marks voice control protocol failures.
	ErrConnection = stderrors.New("connection failure")
)

// Validation builds an error wrapping ErrValidation.
func Validation(format string, args ...any) error {
	return oops.Code(CodeValidation).Wrapf(ErrValidation, format, args...)
}

// Transient wraps err as a recoverable fetch failure.
func Transient(err error, kv ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(CodeTransientFetch).With(kv...).Wrapf(join(ErrTransientFetch, err), "fetch failed")
}

// Permanent builds an error wrapping ErrPermanentSource.
func Permanent(format string, args ...any) error {
	return oops.Code(CodePermanentSource).Wrapf(ErrPermanentSource, format, args...)
}

// Connection wraps err as a voice connection failure.
func Connection(err error, kv ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(CodeConnection).With(kv...).Wrapf(join(ErrConnection, err), "connection failed")
}

// Classify tags an unclassified error as transient. Errors already carrying a
// taxonomy sentinel are returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsTransient(err) || IsPermanent(err) || IsConnection(err) {
		return err
	}
	return Transient(err)
}

// IsTimeout reports whether err was caused by a deadline or a network timeout.
func IsTimeout(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return stderrors.Is(err, context.DeadlineExceeded)
}

func IsValidation(err error) bool { return stderrors.Is(err, ErrValidation) }
func IsTransient(err error) bool  { return stderrors.Is(err, ErrTransientFetch) }
func IsPermanent(err error) bool  { return stderrors.Is(err, ErrPermanentSource) }
func IsConnection(err error) bool { return stderrors.Is(err, ErrConnection) }

func join(sentinel, err error) error {
	return stderrors.Join(sentinel, err)
}

func Is(err, target error) bool { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
