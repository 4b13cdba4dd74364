// Package config assembles the settings shared by an IMAP and an SMTP
// session into one place, via a chained builder.
//
// It is modeled on the teacher's internal/smtpsrv.Server/NewServer builder
// (NewServer/AddCerts/AddAddr/SetAliasesConfig), minus everything that
// builder does which is out of scope here: listener binding (AddAddr),
// on-disk alias/domaininfo wiring, and the protobuf/prototext-backed
// config file format (internal/config.proto) it used to load at startup.
// Reproducing that format would mean fabricating a .proto schema and
// generated code for a file nothing else in this module reads, so this
// package only assembles the values imapsession.New and smtpsession.New
// need directly, the same way the builder assembles a Server.
package config

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/chasquid-dev/mailcore/internal/sasl"
	"github.com/chasquid-dev/mailcore/internal/smtpsession"
	"github.com/chasquid-dev/mailcore/internal/spfcheck"
)

const defaultMaxDataSize = 50 * 1024 * 1024

// Config holds the assembled, immutable settings for a server instance.
// A caller constructs one via Builder and then reads off what each
// session constructor needs.
type Config struct {
	hostname       string
	tlsConfig      *tls.Config
	maxSize        int64
	validator      sasl.Validator
	relay          smtpsession.RelayPolicy
	spf            *spfcheck.Checker
	connTimeout    time.Duration
	commandTimeout time.Duration
}

// Hostname is the name the server announces in greetings and EHLO/OK
// responses.
func (c *Config) Hostname() string { return c.hostname }

// TLSConfig is nil if no certificates were ever added, which disables
// STARTTLS for both protocols.
func (c *Config) TLSConfig() *tls.Config { return c.tlsConfig }

// MaxMessageSize is the maximum accepted size of an SMTP message body.
func (c *Config) MaxMessageSize() int64 { return c.maxSize }

// Validator is the shared SASL credential validator for both protocols.
func (c *Config) Validator() sasl.Validator { return c.validator }

// ConnTimeout is how long a connection may remain idle before the caller
// should close it; this module doesn't enforce it itself (no listener
// loop lives here), it is only carried through for the caller's use.
func (c *Config) ConnTimeout() time.Duration { return c.connTimeout }

// CommandTimeout is the per-command round-trip budget, excluding DATA.
func (c *Config) CommandTimeout() time.Duration { return c.commandTimeout }

// SMTPConfig returns the smtpsession.Config derived from c, ready to pass
// to smtpsession.New.
func (c *Config) SMTPConfig() smtpsession.Config {
	return smtpsession.Config{
		Hostname:  c.hostname,
		TLSConfig: c.tlsConfig,
		MaxSize:   c.maxSize,
		Validator: c.validator,
		Relay:     c.relay,
		SPF:       c.spf,
	}
}

// Builder assembles a Config via chained calls.
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder with the teacher's defaults: session
// tickets disabled (works around a long-standing Microsoft TLS resumption
// bug that also affects this server's own deployments) and a 50 MiB
// message cap.
func NewBuilder() *Builder {
	return &Builder{
		cfg: Config{
			tlsConfig: &tls.Config{
				SessionTicketsDisabled: true,
			},
			maxSize:        defaultMaxDataSize,
			connTimeout:    20 * time.Minute,
			commandTimeout: 1 * time.Minute,
			spf:            &spfcheck.Checker{},
		},
	}
}

// WithHostname sets the announced server hostname.
func (b *Builder) WithHostname(hostname string) *Builder {
	b.cfg.hostname = hostname
	return b
}

// WithMaxMessageSize overrides the default message size cap.
func (b *Builder) WithMaxMessageSize(n int64) *Builder {
	b.cfg.maxSize = n
	return b
}

// WithValidator sets the SASL credential validator.
func (b *Builder) WithValidator(v sasl.Validator) *Builder {
	b.cfg.validator = v
	return b
}

// WithRelay sets the SMTP relay policy.
func (b *Builder) WithRelay(r smtpsession.RelayPolicy) *Builder {
	b.cfg.relay = r
	return b
}

// DisableSPF turns off SPF evaluation entirely, e.g. for tests.
func (b *Builder) DisableSPF() *Builder {
	b.cfg.spf = &spfcheck.Checker{Disable: true}
	return b
}

// WithTimeouts overrides the connection and per-command timeouts.
func (b *Builder) WithTimeouts(conn, command time.Duration) *Builder {
	b.cfg.connTimeout = conn
	b.cfg.commandTimeout = command
	return b
}

// AddCerts loads a certificate/key pair and appends it to the TLS
// configuration used for STARTTLS. Loading an already-issued certificate
// file is distinct from provisioning one (ACME, a CA, etc.), which this
// module deliberately leaves to the caller.
//
// Unlike the other With* methods, AddCerts can fail, so it doesn't return
// *Builder for chaining -- matching the teacher's Server.AddCerts, which
// callers invoke standalone rather than as part of a chain.
func (b *Builder) AddCerts(certPath, keyPath string) error {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return fmt.Errorf("config: loading certificate pair: %w", err)
	}
	b.cfg.tlsConfig.Certificates = append(b.cfg.tlsConfig.Certificates, cert)
	return nil
}

// Build validates the accumulated settings and returns the final Config.
func (b *Builder) Build() (*Config, error) {
	if b.cfg.hostname == "" {
		return nil, fmt.Errorf("config: hostname is required")
	}
	if b.cfg.validator == nil {
		return nil, fmt.Errorf("config: validator is required")
	}
	if b.cfg.relay == nil {
		return nil, fmt.Errorf("config: relay policy is required")
	}

	cfg := b.cfg
	if len(cfg.tlsConfig.Certificates) == 0 {
		// No certificates were ever added: leave STARTTLS disabled rather
		// than handing sessions a TLS config that can't complete a
		// handshake.
		cfg.tlsConfig = nil
	}
	return &cfg, nil
}
