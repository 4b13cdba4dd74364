// Package authenticate drives a SASL challenge/response exchange over a
// line-oriented connection, shared by both the IMAP AUTHENTICATE command
// and SMTP AUTH.
//
// It is grounded on the Rust authenticate() driver (crates/imap/src/authenticate.rs):
// send a base64 challenge prefixed with "+ ", read a base64 response line,
// feed it to the mechanism, and repeat until the mechanism reports it is
// done. The teacher's own internal/auth.DecodeResponse has no multi-round
// driver loop (chasquid only ever supports PLAIN in a single round), so
// this loop is new code generalizing that one-shot path to the Rust
// original's general mechanism framework.
package authenticate

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/chasquid-dev/mailcore/internal/sasl"
)

// ChallengeWriter sends a base64-encoded continuation challenge to the
// client; an empty challenge is sent as a bare "+" (no payload) by
// convention in both IMAP and SMTP.
type ChallengeWriter func(challenge []byte) error

// ResponseReader reads back the client's next base64-encoded response
// line.
type ResponseReader func() (string, error)

// ErrCanceled is returned when the client sends a bare "*" to abort the
// exchange, per RFC 4954 / RFC 3501.
var ErrCanceled = errors.New("authenticate: canceled by client")

// Run drives a SASL exchange to completion using mechanism, returning the
// authenticated Identity on success.
//
// initialResponse, if non-nil, is used as the first round's input instead
// of reading one from readResponse (e.g. "AUTH PLAIN <initial-response>"
// in a single SMTP command line, or IMAP's optional SASL-IR).
func Run(mechanism sasl.Mechanism, validator sasl.Validator, initialResponse []byte, writeChallenge ChallengeWriter, readResponse ResponseReader) (sasl.Identity, error) {
	challenge := mechanism.Init()

	for {
		var line []byte
		if initialResponse != nil {
			line = initialResponse
			initialResponse = nil
		} else {
			if err := writeChallenge(challenge); err != nil {
				return sasl.Identity{}, err
			}

			resp, err := readResponse()
			if err != nil {
				return sasl.Identity{}, err
			}

			if strings.TrimSpace(resp) == "*" {
				return sasl.Identity{}, ErrCanceled
			}

			decoded, err := decodeBase64Response(resp)
			if err != nil {
				return sasl.Identity{}, &sasl.MechanismError{Decode: true, Err: err}
			}
			line = decoded
		}

		step, err := mechanism.Eat(validator, line)
		if err != nil {
			return sasl.Identity{}, err
		}
		if step.Done {
			return step.Identity, nil
		}
		challenge = step.Challenge
	}
}

// decodeBase64Response decodes one client response line. A lone "=" means
// an empty-string response per RFC 4954.
func decodeBase64Response(line string) ([]byte, error) {
	trimmed := strings.TrimRight(line, "\r\n")
	if trimmed == "=" {
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(trimmed)
}

// EncodeChallenge base64-encodes a server challenge for the wire.
func EncodeChallenge(challenge []byte) string {
	return base64.StdEncoding.EncodeToString(challenge)
}
