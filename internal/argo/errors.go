package argo

import (
	"errors"
	"fmt"

	"github.com/roach88/argosync/internal/content"
)

// ErrorCode categorizes failures surfaced to the transport layer.
type ErrorCode string

const (
	// CodeNotFound indicates no entity or revision matched.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnsupportedType indicates the entity type is unknown or lacks a
	// capability the operation requires.
	CodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// CodeInvalidPayload indicates malformed input.
	CodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"

	// CodeStorageFailure indicates the store rejected a read or commit.
	CodeStorageFailure ErrorCode = "STORAGE_FAILURE"
)

// Error is the single error type returned by Service operations.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// TypeID is the entity type involved, if any.
	TypeID string

	// Key is the uuid or numeric id involved, if any.
	Key string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.TypeID != "" && e.Key != "" {
		msg = fmt.Sprintf("%s (type=%s, key=%s)", msg, e.TypeID, e.Key)
	} else if e.TypeID != "" {
		msg = fmt.Sprintf("%s (type=%s)", msg, e.TypeID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if err is a NOT_FOUND error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsUnsupportedType returns true if err is an UNSUPPORTED_TYPE error.
func IsUnsupportedType(err error) bool {
	return hasCode(err, CodeUnsupportedType)
}

// IsInvalidPayload returns true if err is an INVALID_PAYLOAD error.
func IsInvalidPayload(err error) bool {
	return hasCode(err, CodeInvalidPayload)
}

// IsStorageFailure returns true if err is a STORAGE_FAILURE error.
func IsStorageFailure(err error) bool {
	return hasCode(err, CodeStorageFailure)
}

// CodeOf returns the code of err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func newError(code ErrorCode, typeID, key, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		TypeID:  typeID,
		Key:     key,
		Err:     cause,
	}
}

// classify maps a collaborator error onto the taxonomy.
// Sentinels from content win over fallback; an *Error passes through unchanged.
func classify(err error, fallback ErrorCode, typeID, key, message string) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	code := fallback
	switch {
	case errors.Is(err, content.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, content.ErrInvalidPayload):
		code = CodeInvalidPayload
	}
	return newError(code, typeID, key, message, err)
}
