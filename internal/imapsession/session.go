package imapsession

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/chasquid-dev/mailcore/internal/authenticate"
	"github.com/chasquid-dev/mailcore/internal/imapproto"
	"github.com/chasquid-dev/mailcore/internal/maillog"
	"github.com/chasquid-dev/mailcore/internal/sasl"
	"github.com/chasquid-dev/mailcore/internal/streamconn"
)

// State is the IMAP connection state (RFC 9051 §3).
type State int

const (
	NotAuthenticated State = iota
	Authenticated
	Selected
	Logout
)

// Session drives one IMAP connection's command loop.
type Session struct {
	conn       *streamconn.Connection
	tlsConfig  *tls.Config
	validator  sasl.Validator
	dispatcher Dispatcher

	state     State
	identity  *sasl.Identity
	mailbox   string
	mailboxRO bool
	queue     *Queue
}

// New creates a Session over conn. tlsConfig may be nil if STARTTLS is
// not offered on this listener.
func New(conn *streamconn.Connection, tlsConfig *tls.Config, validator sasl.Validator, dispatcher Dispatcher) *Session {
	return &Session{
		conn:       conn,
		tlsConfig:  tlsConfig,
		validator:  validator,
		dispatcher: dispatcher,
		state:      NotAuthenticated,
		queue:      NewQueue(),
	}
}

// Greet sends the initial "* OK ... Server ready" banner.
func (s *Session) Greet() error {
	return s.conn.WriteFlush(imapproto.Untagged("OK [" + s.capabilities().String() + "] Server ready"))
}

func (s *Session) capabilities() imapproto.Capabilities {
	caps := imapproto.CapIMAP4rev1 | imapproto.CapIMAP4rev2 | imapproto.CapAuthPlain | imapproto.CapSASLIR
	if s.conn.IsPlain() {
		caps |= imapproto.CapLoginDisabled
		if s.tlsConfig != nil {
			caps |= imapproto.CapSTARTTLS
		}
	}
	return caps
}

func (s *Session) writeUntagged(payload string) error {
	return s.conn.Write(imapproto.Untagged(payload))
}

func (s *Session) respond(resp imapproto.TaggedStatusResponse) error {
	return s.conn.WriteFlush(resp.String())
}

type readResult struct {
	line string
	err  error
}

// Serve runs the command loop until LOGOUT or a fatal I/O error.
//
// Reading runs in its own goroutine so that a completed asynchronous
// mailbox operation can be written to the client as soon as it finishes,
// rather than only between command reads -- otherwise a client that
// issues one command and waits for its reply (rather than pipelining the
// next one immediately) would never see the completion.
func (s *Session) Serve() error {
	lines := make(chan readResult)
	go func() {
		for {
			line, err := s.conn.ReadLine()
			lines <- readResult{line: line, err: err}
			if err != nil {
				return
			}
		}
	}()

	for s.state != Logout {
		select {
		case p := <-s.queue.results:
			s.queue.complete(p.tag)
			s.writeOperationResult(p.tag, p.result)

		case rr := <-lines:
			if rr.err != nil {
				if rr.err == io.EOF {
					return nil
				}
				return rr.err
			}

			tc, err := imapproto.ParseTaggedCommand(rr.line)
			if err != nil {
				if perr, ok := err.(*imapproto.ParseError); ok {
					if werr := s.respond(imapproto.BadResponse(perr.Syntax).WithTag(firstField(rr.line))); werr != nil {
						return werr
					}
					continue
				}
				if werr := s.respond(imapproto.BadResponse("Unrecognized command").WithTag(firstField(rr.line))); werr != nil {
					return werr
				}
				continue
			}

			if err := s.dispatch(tc); err != nil {
				return err
			}
		}
	}
	return nil
}

func firstField(line string) string {
	tag, _, _ := strings.Cut(line, " ")
	return tag
}

func (s *Session) writeOperationResult(tag string, result Result) {
	if result.Err != nil {
		s.respond(result.Err.WithTag(tag))
		return
	}
	payload := result.Response.String()
	if result.Response.Select != nil {
		// A SELECT payload already ends with its own tagged completion.
		s.conn.WriteFlush(payload)
		return
	}
	if payload != "" {
		s.conn.Write(payload)
	}
	s.respond(imapproto.OKResponse(result.Response.Text).WithTag(tag))
}

func (s *Session) dispatch(tc imapproto.TaggedCommand) error {
	cmd := tc.Command

	if s.queue.MustWaitBefore() {
		tag, result := s.queue.Wait()
		s.writeOperationResult(tag, result)
	}

	switch cmd.Name {
	case imapproto.CmdCapability:
		if err := s.writeUntagged(s.capabilities().String()); err != nil {
			return err
		}
		return s.respond(imapproto.OKResponse("CAPABILITY completed").WithTag(tc.Tag))

	case imapproto.CmdNoop:
		return s.respond(imapproto.OKResponse("NOOP completed").WithTag(tc.Tag))

	case imapproto.CmdLogout:
		s.state = Logout
		if err := s.writeUntagged("BYE"); err != nil {
			return err
		}
		return s.respond(imapproto.OKResponse("Logged out").WithTag(tc.Tag))

	case imapproto.CmdStarttls:
		return s.handleStarttls(tc.Tag)

	case imapproto.CmdAuthenticate:
		return s.handleAuthenticate(tc.Tag, cmd)

	case imapproto.CmdLogin:
		return s.handleLogin(tc.Tag, cmd)

	case imapproto.CmdEnable:
		return s.respond(imapproto.BadResponse("ENABLE not supported").WithTag(tc.Tag))

	case imapproto.CmdSelect, imapproto.CmdExamine:
		return s.handleSelect(tc, cmd.Name == imapproto.CmdExamine)

	case imapproto.CmdList:
		return s.handleList(tc)

	case imapproto.CmdStatus:
		return s.handleStatus(tc, cmd)

	case imapproto.CmdCreate:
		return s.handleCreate(tc, cmd)

	case imapproto.CmdFetch:
		return s.handleFetch(tc, cmd)

	default:
		return s.respond(imapproto.BadResponse("Command not implemented").WithTag(tc.Tag))
	}
}

func (s *Session) handleStarttls(tag string) error {
	if s.conn.IsTLS() {
		return s.respond(imapproto.BadResponse("Already using TLS").WithTag(tag))
	}
	if s.tlsConfig == nil {
		return s.respond(imapproto.BadResponse("TLS not available").WithTag(tag))
	}

	if err := s.respond(imapproto.OKResponse("Begin TLS negotiation").WithTag(tag)); err != nil {
		return err
	}
	return s.conn.Upgrade(s.tlsConfig)
}

func (s *Session) handleAuthenticate(tag string, cmd imapproto.Command) error {
	if s.state != NotAuthenticated {
		return s.respond(imapproto.BadResponse("Already authenticated").WithTag(tag))
	}

	mechanism, err := sasl.New(sasl.Name(cmd.Mechanism))
	if err != nil {
		return s.respond(imapproto.BadResponse("Unsupported mechanism").WithTag(tag))
	}

	var initial []byte
	if cmd.InitialResponse != nil {
		// The SASL-IR initial response is base64, with "=" for empty.
		initial = []byte{}
		if *cmd.InitialResponse != "=" {
			initial, err = base64.StdEncoding.DecodeString(*cmd.InitialResponse)
			if err != nil {
				return s.respondAuthError(tag, &sasl.MechanismError{Decode: true, Err: err})
			}
		}
	}

	identity, err := authenticate.Run(mechanism, s.validator, initial,
		func(challenge []byte) error {
			return s.conn.WriteFlush("+ " + authenticate.EncodeChallenge(challenge) + "\r\n")
		},
		func() (string, error) {
			return s.conn.ReadLine()
		},
	)
	if err != nil {
		maillog.Auth(s.conn.Raw().RemoteAddr(), "", false)
		return s.respondAuthError(tag, err)
	}
	maillog.Auth(s.conn.Raw().RemoteAddr(), identity.User, true)

	s.identity = &identity
	s.state = Authenticated
	return s.respond(imapproto.OKResponse("Logged in").WithTag(tag))
}

func (s *Session) handleLogin(tag string, cmd imapproto.Command) error {
	if s.state != NotAuthenticated {
		return s.respond(imapproto.BadResponse("Already authenticated").WithTag(tag))
	}

	identity, err := s.validator.Validate(sasl.Credentials{Username: cmd.Username, Password: cmd.Password})
	if err != nil {
		maillog.Auth(s.conn.Raw().RemoteAddr(), cmd.Username, false)
		return s.respondAuthError(tag, err)
	}
	maillog.Auth(s.conn.Raw().RemoteAddr(), identity.User, true)

	s.identity = &identity
	s.state = Authenticated
	return s.respond(imapproto.OKResponse("Logged in").WithTag(tag))
}

func (s *Session) respondAuthError(tag string, err error) error {
	if errors.Is(err, authenticate.ErrCanceled) {
		return s.respond(imapproto.BadResponse("Authentication canceled").WithTag(tag))
	}
	if ve, ok := err.(*sasl.ValidationError); ok {
		return s.respond(imapproto.FromValidationError(ve).WithTag(tag))
	}
	if me, ok := err.(*sasl.MechanismError); ok {
		return s.respond(imapproto.FromMechanismError(me).WithTag(tag))
	}
	return s.respond(imapproto.BadResponse("Authentication failed").WithTag(tag))
}

func (s *Session) requireAuthenticated(tag string) bool {
	if s.state == NotAuthenticated {
		s.respond(imapproto.BadResponse("Not authenticated").WithTag(tag))
		return false
	}
	return true
}

func (s *Session) handleSelect(tc imapproto.TaggedCommand, readOnly bool) error {
	if !s.requireAuthenticated(tc.Tag) {
		return nil
	}

	mailbox := tc.Command.Mailbox
	s.queue.Submit(tc.Tag, tc.Command.Name, func() Result {
		resp, err := s.dispatcher.Select(mailbox, readOnly)
		if err != nil {
			e := imapproto.NoResponse(err.Error())
			return Result{Err: &e}
		}
		resp.Tag = tc.Tag
		resp.ReadOnly = readOnly
		return Result{Response: Response{Select: &resp}}
	})

	s.mailbox = mailbox
	s.mailboxRO = readOnly
	s.state = Selected
	return nil
}

func (s *Session) handleList(tc imapproto.TaggedCommand) error {
	if !s.requireAuthenticated(tc.Tag) {
		return nil
	}

	reference, pattern, _ := strings.Cut(tc.Command.Mailbox, " ")
	s.queue.Submit(tc.Tag, tc.Command.Name, func() Result {
		items, err := s.dispatcher.List(reference, pattern)
		if err != nil {
			e := imapproto.NoResponse(err.Error())
			return Result{Err: &e}
		}
		return Result{Response: Response{List: items, Text: "LIST completed"}}
	})
	return nil
}

func (s *Session) handleStatus(tc imapproto.TaggedCommand, cmd imapproto.Command) error {
	if !s.requireAuthenticated(tc.Tag) {
		return nil
	}

	items, err := imapproto.ParseStatusItems(cmd.StatusItems)
	if err != nil {
		return s.respond(imapproto.BadResponse(err.Error()).WithTag(tc.Tag))
	}

	mailbox := cmd.Mailbox
	s.queue.Submit(tc.Tag, tc.Command.Name, func() Result {
		data, err := s.dispatcher.Status(mailbox, items)
		if err != nil {
			e := imapproto.NoResponse(err.Error())
			return Result{Err: &e}
		}
		return Result{Response: Response{Status: &data, Text: "STATUS completed"}}
	})
	return nil
}

func (s *Session) handleCreate(tc imapproto.TaggedCommand, cmd imapproto.Command) error {
	if !s.requireAuthenticated(tc.Tag) {
		return nil
	}

	mailbox := cmd.Mailbox
	s.queue.Submit(tc.Tag, tc.Command.Name, func() Result {
		if err := s.dispatcher.Create(mailbox); err != nil {
			e := imapproto.NoResponse(err.Error())
			return Result{Err: &e}
		}
		return Result{Response: Response{Text: "CREATE completed"}}
	})
	return nil
}

func (s *Session) handleFetch(tc imapproto.TaggedCommand, cmd imapproto.Command) error {
	if s.state != Selected {
		return s.respond(imapproto.BadResponse("Not selected").WithTag(tc.Tag))
	}

	seq, err := imapproto.ParseSequenceSet(cmd.Sequence)
	if err != nil {
		return s.respond(imapproto.BadResponse(err.Error()).WithTag(tc.Tag))
	}
	items, err := imapproto.ParseFetchItems(cmd.FetchItems)
	if err != nil {
		return s.respond(imapproto.BadResponse(err.Error()).WithTag(tc.Tag))
	}

	s.queue.Submit(tc.Tag, tc.Command.Name, func() Result {
		raw, err := s.dispatcher.Fetch(seq, items)
		if err != nil {
			e := imapproto.NoResponse(err.Error())
			return Result{Err: &e}
		}
		return Result{Response: Response{Raw: raw, Text: "FETCH completed"}}
	})
	return nil
}
