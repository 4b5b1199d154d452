// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeTransport: the request never produced a status (DNS, refused, reset, canceled).
	ErrTypeTransport
	// ErrTypeHTTPStatus: the server answered with a non-2xx status.
	ErrTypeHTTPStatus
	// ErrTypePayload: a 2xx body was unreadable or lacked the expected field.
	ErrTypePayload
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTransport:
		return "transport"
	case ErrTypeHTTPStatus:
		return "http_status"
	case ErrTypePayload:
		return "payload"
	default:
		return "unknown"
	}
}

// ClientError represents a failed call to the service.
type ClientError struct {
	Type    ErrorType
	Status  int    // HTTP status code, 0 for transport errors
	Detail  string // server-provided "detail" text, if any
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg += " (HTTP " + strconv.Itoa(e.Status) + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Status == 0 && t.Detail == "" && t.Cause == nil
}

// Sentinel errors for errors.Is checks against the error type only.
var (
	ErrTransport  = &ClientError{Type: ErrTypeTransport, Message: "request failed"}
	ErrHTTPStatus = &ClientError{Type: ErrTypeHTTPStatus, Message: "unexpected status"}
	ErrPayload    = &ClientError{Type: ErrTypePayload, Message: "invalid response payload"}
)

// DetailOf returns the server-provided detail carried by err, if any.
func DetailOf(err error) (string, bool) {
	var cerr *ClientError
	if errors.As(err, &cerr) && cerr.Detail != "" {
		return cerr.Detail, true
	}
	return "", false
}

// =============================================================================
// DETAIL PARSING
// =============================================================================

// validationIssue is one entry of a FastAPI 422 "detail" list.
type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseDetail extracts the "detail" field from an error body. The field is
// either a string or a list of validation issues; anything else yields "".
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var issues []validationIssue
	if err := json.Unmarshal(envelope.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg != "" {
				msgs = append(msgs, issue.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}
