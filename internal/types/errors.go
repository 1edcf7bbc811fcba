package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can decide what to do with it
type ErrorKind string

// Error kinds
const (
	// KindAuth means the credential was rejected or lacks permission. Never retried.
	KindAuth ErrorKind = "AuthError"
	// KindUnparsable means no known response shape yielded usable content.
	KindUnparsable ErrorKind = "UnparsableResponse"
	// KindIncompletePartition is a warning: the script split into a different number of parts.
	KindIncompletePartition ErrorKind = "IncompletePartition"
	// KindGenerationFailed means the remote service reported failure.
	KindGenerationFailed ErrorKind = "GenerationFailed"
	// KindTimeout means a bounded wait was exceeded.
	KindTimeout ErrorKind = "Timeout"
	// KindTransient is a connection-level failure eligible for one local retry.
	KindTransient ErrorKind = "TransientNetworkError"
	// KindCanceled means the caller canceled the operation.
	KindCanceled ErrorKind = "Canceled"
	// KindInvalidRequest means the input failed validation before any call was made.
	KindInvalidRequest ErrorKind = "InvalidRequest"
	// KindUnknown is used for errors that carry no classification.
	KindUnknown ErrorKind = "Unknown"
)

// Error is the typed error returned by clients, extractors and stages
type Error struct {
	Kind    ErrorKind
	Stage   StageName
	Message string
	Cause   error
	// Raw holds the offending response body for diagnostics. It is never rendered to users.
	Raw []byte
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Stage != "" {
		prefix = fmt.Sprintf("%s stage: %s", e.Stage, e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches kind sentinels such as ErrTimeout
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Stage == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is
var (
	ErrAuth             = &Error{Kind: KindAuth}
	ErrUnparsable       = &Error{Kind: KindUnparsable}
	ErrGenerationFailed = &Error{Kind: KindGenerationFailed}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrTransient        = &Error{Kind: KindTransient}
	ErrCanceled         = &Error{Kind: KindCanceled}
)

// NewError builds a typed error
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf classifies any error, looking through wrapping
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindUnknown
}

// WithStage returns a copy of err attributed to stage. Untyped errors are wrapped.
func WithStage(err error, stage StageName) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		out := *typed
		out.Stage = stage
		return &out
	}
	return &Error{Kind: KindOf(err), Stage: stage, Message: "stage failed", Cause: err}
}

// ToStageError flattens err into the record stored on a PipelineResult
func ToStageError(err error, stage StageName) StageError {
	typed := WithStage(err, stage)
	msg := typed.Message
	if typed.Cause != nil {
		msg = fmt.Sprintf("%s: %v", typed.Message, typed.Cause)
	}
	return StageError{Stage: stage, Kind: typed.Kind, Message: msg}
}
