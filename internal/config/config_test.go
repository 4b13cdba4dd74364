package config

import (
	"testing"
	"time"

	"github.com/chasquid-dev/mailcore/internal/sasl"
	"github.com/chasquid-dev/mailcore/internal/smtpsession"
)

type fakeValidator struct{}

func (fakeValidator) Validate(creds sasl.Credentials) (sasl.Identity, error) {
	return sasl.Identity{User: creds.Username}, nil
}

type fakeRelay struct{}

func (fakeRelay) Allowed(addr string, authenticated bool) bool { return authenticated }

func TestBuildRequiresHostname(t *testing.T) {
	_, err := NewBuilder().
		WithValidator(fakeValidator{}).
		WithRelay(fakeRelay{}).
		Build()
	if err == nil {
		t.Fatal("Build without hostname succeeded, want error")
	}
}

func TestBuildRequiresValidator(t *testing.T) {
	_, err := NewBuilder().
		WithHostname("mx.example.org").
		WithRelay(fakeRelay{}).
		Build()
	if err == nil {
		t.Fatal("Build without validator succeeded, want error")
	}
}

func TestBuildRequiresRelay(t *testing.T) {
	_, err := NewBuilder().
		WithHostname("mx.example.org").
		WithValidator(fakeValidator{}).
		Build()
	if err == nil {
		t.Fatal("Build without relay succeeded, want error")
	}
}

func TestBuildDefaults(t *testing.T) {
	c, err := NewBuilder().
		WithHostname("mx.example.org").
		WithValidator(fakeValidator{}).
		WithRelay(fakeRelay{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if c.Hostname() != "mx.example.org" {
		t.Errorf("Hostname() = %q", c.Hostname())
	}
	if c.MaxMessageSize() != defaultMaxDataSize {
		t.Errorf("MaxMessageSize() = %d, want %d", c.MaxMessageSize(), defaultMaxDataSize)
	}
	if c.TLSConfig() != nil {
		t.Error("TLSConfig() is non-nil with no certificates added")
	}
	if c.ConnTimeout() != 20*time.Minute {
		t.Errorf("ConnTimeout() = %v", c.ConnTimeout())
	}
	if c.CommandTimeout() != time.Minute {
		t.Errorf("CommandTimeout() = %v", c.CommandTimeout())
	}
}

func TestBuildOverrides(t *testing.T) {
	c, err := NewBuilder().
		WithHostname("mx.example.org").
		WithValidator(fakeValidator{}).
		WithRelay(fakeRelay{}).
		WithMaxMessageSize(1024).
		WithTimeouts(5*time.Minute, 10*time.Second).
		DisableSPF().
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if c.MaxMessageSize() != 1024 {
		t.Errorf("MaxMessageSize() = %d, want 1024", c.MaxMessageSize())
	}
	if c.ConnTimeout() != 5*time.Minute {
		t.Errorf("ConnTimeout() = %v", c.ConnTimeout())
	}
	if c.CommandTimeout() != 10*time.Second {
		t.Errorf("CommandTimeout() = %v", c.CommandTimeout())
	}
}

func TestAddCertsFailsOnMissingFile(t *testing.T) {
	b := NewBuilder().WithHostname("mx.example.org")
	if err := b.AddCerts("/does/not/exist.crt", "/does/not/exist.key"); err == nil {
		t.Error("AddCerts with missing files succeeded, want error")
	}
}

func TestSMTPConfig(t *testing.T) {
	validator := fakeValidator{}
	relay := fakeRelay{}
	c, err := NewBuilder().
		WithHostname("mx.example.org").
		WithValidator(validator).
		WithRelay(relay).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	smtpCfg := c.SMTPConfig()
	want := smtpsession.Config{
		Hostname:  "mx.example.org",
		TLSConfig: nil,
		MaxSize:   defaultMaxDataSize,
		Validator: validator,
		Relay:     relay,
		SPF:       smtpCfg.SPF, // compared by presence only, see below
	}
	if smtpCfg.Hostname != want.Hostname || smtpCfg.MaxSize != want.MaxSize {
		t.Errorf("SMTPConfig() = %+v", smtpCfg)
	}
	if smtpCfg.SPF == nil {
		t.Error("SMTPConfig().SPF is nil")
	}
}
