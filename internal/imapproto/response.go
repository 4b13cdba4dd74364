// Package imapproto implements IMAP command parsing and response
// formatting: the wire grammar and framing rules, with no session state
// of its own.
//
// It is grounded on the Rust imap-proto crate (command.rs, response.rs,
// flags.rs, sequence.rs) and on the teacher's line-oriented conventions in
// internal/smtpsrv/conn.go for writing tagged/untagged responses.
package imapproto

import (
	"fmt"
	"strings"

	"github.com/chasquid-dev/mailcore/internal/sasl"
)

// Status is the three-value outcome of a tagged IMAP response.
type Status int

const (
	OK Status = iota
	NO
	BAD
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case NO:
		return "NO"
	case BAD:
		return "BAD"
	default:
		return "BAD"
	}
}

// StatusResponse is an untagged status/message pair, used both on its own
// (as "* OK ...") and as the basis for a TaggedStatusResponse.
type StatusResponse struct {
	Status  Status
	Message string
}

func OKResponse(message string) StatusResponse  { return StatusResponse{OK, message} }
func NoResponse(message string) StatusResponse  { return StatusResponse{NO, message} }
func BadResponse(message string) StatusResponse { return StatusResponse{BAD, message} }

// WithTag attaches a tag, turning this into a complete tagged response
// line.
func (r StatusResponse) WithTag(tag string) TaggedStatusResponse {
	return TaggedStatusResponse{Tag: tag, Status: r.Status, Message: r.Message}
}

// TaggedStatusResponse is the final line of any IMAP command's reply:
// "<tag> <status> <message>\r\n".
type TaggedStatusResponse struct {
	Tag     string
	Status  Status
	Message string
}

func (r TaggedStatusResponse) String() string {
	return fmt.Sprintf("%s %s %s\r\n", r.Tag, r.Status, r.Message)
}

// Untagged formats an untagged server response: "* <payload>\r\n".
func Untagged(payload string) string {
	return "* " + payload + "\r\n"
}

// FromValidationError maps a SASL validation failure to the untagged
// status it should be reported with.
func FromValidationError(err *sasl.ValidationError) StatusResponse {
	if err.Reason == sasl.InvalidCredentials {
		return NoResponse("invalid credentials")
	}
	return BadResponse("invalid identity")
}

// FromMechanismError maps a SASL mechanism failure to the response it
// should be reported with.
func FromMechanismError(err *sasl.MechanismError) StatusResponse {
	if err.Decode {
		return BadResponse("failed to decode response")
	}
	if ve, ok := err.Err.(*sasl.ValidationError); ok {
		return FromValidationError(ve)
	}
	return BadResponse("authentication failed")
}

// FmtParenList formats items as a space-delimited, parenthesized list per
// RFC 9051 §4.4, e.g. "(\\Seen \\Answered)".
func FmtParenList(items []string) string {
	return "(" + strings.Join(items, " ") + ")"
}
