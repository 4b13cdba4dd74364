// Package sasl implements the mechanism framework shared by IMAP
// AUTHENTICATE and SMTP AUTH: a Validator checks decoded credentials, and a
// Mechanism drives the challenge/response exchange for one SASL mechanism.
//
// It is grounded on the teacher's internal/auth package (Authenticator,
// Backend, DecodeResponse) generalized into an interface so that mechanisms
// other than PLAIN can be added later without touching the session code.
package sasl

import (
	"bytes"
	"errors"
	"strings"
)

// Credentials is the username/password pair decoded from a mechanism's
// final challenge response.
type Credentials struct {
	Username string
	Password string
}

// Identity is the authenticated principal returned by a Validator.
type Identity struct {
	User string
}

// ValidationError is returned by a Validator when credentials are rejected
// or cannot be checked.
type ValidationError struct {
	// Reason distinguishes "the password is wrong" from "the backend could
	// not be reached", so callers can log and respond appropriately
	// without string-matching an error message.
	Reason ValidationReason
}

type ValidationReason int

const (
	InvalidCredentials ValidationReason = iota
	Unknown
)

func (e *ValidationError) Error() string {
	switch e.Reason {
	case InvalidCredentials:
		return "sasl: invalid credentials"
	default:
		return "sasl: validation failed"
	}
}

// Validator checks a set of decoded credentials against a backend (a flat
// file, an external daemon, a database) and returns the resulting
// Identity.
type Validator interface {
	Validate(creds Credentials) (Identity, error)
}

// MechanismError wraps the two ways a mechanism exchange can fail: the
// client's response could not be decoded, or the underlying Validator
// rejected the credentials.
type MechanismError struct {
	Decode bool
	Err    error
}

func (e *MechanismError) Error() string {
	if e.Decode {
		return "sasl: decode error"
	}
	return e.Err.Error()
}

func (e *MechanismError) Unwrap() error { return e.Err }

// Step is the outcome of feeding one round of client bytes to a Mechanism:
// either it needs another round (Challenge holds the bytes to send back),
// or it is Done and Identity holds the authenticated principal.
type Step struct {
	Done      bool
	Challenge []byte
	Identity  Identity
}

// Mechanism drives one SASL mechanism's challenge/response state machine.
// Init returns the initial challenge to send the client (possibly empty,
// as with PLAIN); Eat consumes the client's response bytes and advances
// the exchange.
type Mechanism interface {
	Init() []byte
	Eat(validator Validator, response []byte) (Step, error)
}

// Name identifies a supported mechanism by its SASL name, case-insensitive
// per RFC 4422.
type Name string

const MechanismPlain Name = "PLAIN"

var ErrUnknownMechanism = errors.New("sasl: unknown mechanism")

// New constructs the Mechanism for the given SASL mechanism name.
func New(name Name) (Mechanism, error) {
	switch Name(strings.ToUpper(string(name))) {
	case MechanismPlain:
		return &Plain{}, nil
	default:
		return nil, ErrUnknownMechanism
	}
}

// Plain implements the PLAIN SASL mechanism (RFC 4616): a single
// client-sent response of the form "authzid\0authcid\0password".
type Plain struct{}

func (p *Plain) Init() []byte { return nil }

func (p *Plain) Eat(validator Validator, response []byte) (Step, error) {
	creds, err := DecodePlain(response)
	if err != nil {
		return Step{}, &MechanismError{Decode: true, Err: err}
	}

	identity, err := validator.Validate(creds)
	if err != nil {
		return Step{}, &MechanismError{Err: err}
	}

	return Step{Done: true, Identity: identity}, nil
}

var errMissingParts = errors.New("sasl: missing NUL-separated parts")

// DecodePlain decodes a PLAIN SASL response of the form
// "authzid\0authcid\0password", ignoring the authorization identity.
func DecodePlain(data []byte) (Credentials, error) {
	parts := bytes.SplitN(data, []byte{0}, 3)
	if len(parts) != 3 {
		return Credentials{}, errMissingParts
	}

	return Credentials{
		Username: string(parts[1]),
		Password: string(parts[2]),
	}, nil
}
