package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so each transport can map them once.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindMalformedInput
	KindNotList
	KindBodyTooLarge
	KindRateLimited
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed_input"
	case KindNotList:
		return "not_list"
	case KindBodyTooLarge:
		return "body_too_large"
	case KindRateLimited:
		return "rate_limited"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error carries a kind, a client-safe message, and the underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the default client message for kind.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Message: defaultMessage(kind), Err: err}
}

func defaultMessage(kind ErrorKind) string {
	switch kind {
	case KindMalformedInput:
		return MsgExpectedJSON
	case KindNotList:
		return MsgExpectedList
	case KindBodyTooLarge:
		return MsgBodyTooLarge
	case KindRateLimited:
		return fmt.Sprintf(MsgRateLimited, "too many requests")
	case KindForbidden:
		return MsgForbidden
	default:
		return MsgInternal
	}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the text safe to show a client. Internal details never leak.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return MsgInternal
}
