package core

// error_messages.go maps technical errors to user-facing messages with
// codes for support reference. Codes by category:
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Missing source: no source URL was given
//	         Patterns: "missing source"
//	REQ002 - Invalid source: source is not an absolute http(s) URL
//	         Patterns: "invalid source url"
//	REQ003 - Request cancelled
//	         Patterns: "context canceled"
//	REQ004 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Source Errors (SRC001-SRC099)
//
//	SRC004 - GeoJSON body has no features array
//	         Patterns: "no features array"
//	SRC005 - CSV body has no header row
//	         Patterns: "missing header row"
//	SRC006 - Buffered response too large
//	         Patterns: "body too large"
//	SRC003 - Source body could not be parsed
//	         Patterns: "malformed source body"
//	SRC002 - Upstream returned an error status
//	         Patterns: "upstream returned status"
//	SRC001 - Upstream unreachable
//	         Patterns: "connection refused", "no such host"
//
// # Capacity (BUSY001, RATE001)
//
//	BUSY001 - All sampling slots are in use
//	          Patterns: "too many concurrent samplings"
//	RATE001 - Too many requests from this client
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Request Errors (REQ001-REQ004)
	// =========================================================================
	{
		pattern: "missing source",
		msg: UserMessage{
			Message: "No source URL was provided",
			Action:  "Pass the URL to inspect as the source query parameter",
			Code:    "REQ001",
		},
	},
	{
		pattern: "invalid source url",
		msg: UserMessage{
			Message: "The source is not a valid http or https URL",
			Action:  "Check the URL and include the scheme, e.g. https://",
			Code:    "REQ002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "The source responded too slowly; try again later",
			Code:    "REQ004",
		},
	},

	// =========================================================================
	// Source Errors (SRC001-SRC006)
	// =========================================================================
	{
		pattern: "no features array",
		msg: UserMessage{
			Message: "The GeoJSON source has no features array",
			Action:  "Make sure the URL points at a FeatureCollection",
			Code:    "SRC004",
		},
	},
	{
		pattern: "missing header row",
		msg: UserMessage{
			Message: "The CSV source has no header row",
			Action:  "Make sure the first line of the file names the columns",
			Code:    "SRC005",
		},
	},
	{
		pattern: "body too large",
		msg: UserMessage{
			Message: "The source response is too large to inspect",
			Action:  "Point at a smaller layer or document",
			Code:    "SRC006",
		},
	},
	{
		pattern: "malformed source body",
		msg: UserMessage{
			Message: "The source could not be parsed",
			Action:  "Check that the file is valid for its extension",
			Code:    "SRC003",
		},
	},
	{
		pattern: "upstream returned status",
		msg: UserMessage{
			Message: "The source server returned an error",
			Action:  "Check that the URL is publicly reachable",
			Code:    "SRC002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the source server",
			Action:  "Check the host name and port",
			Code:    "SRC001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "Unable to connect to the source server",
			Action:  "Check the host name and port",
			Code:    "SRC001",
		},
	},

	// =========================================================================
	// Capacity (BUSY001, RATE001)
	// =========================================================================
	{
		pattern: "too many concurrent samplings",
		msg: UserMessage{
			Message: "The service is busy sampling other sources",
			Action:  "Please wait a moment and try again",
			Code:    "BUSY001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
