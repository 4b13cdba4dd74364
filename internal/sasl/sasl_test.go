package sasl

import (
	"encoding/base64"
	"testing"
)

type fakeValidator struct {
	users map[string]string
}

func (f *fakeValidator) Validate(creds Credentials) (Identity, error) {
	want, ok := f.users[creds.Username]
	if !ok || want != creds.Password {
		return Identity{}, &ValidationError{Reason: InvalidCredentials}
	}
	return Identity{User: creds.Username}, nil
}

func TestDecodePlain(t *testing.T) {
	raw, _ := base64.StdEncoding.DecodeString("AGJvYgBodW50ZXIy")
	creds, err := DecodePlain(raw)
	if err != nil {
		t.Fatalf("DecodePlain: %v", err)
	}
	if creds.Username != "bob" || creds.Password != "hunter2" {
		t.Errorf("DecodePlain = %+v", creds)
	}
}

func TestDecodePlainMissingParts(t *testing.T) {
	if _, err := DecodePlain([]byte("justonepart")); err == nil {
		t.Error("DecodePlain on malformed input should fail")
	}
}

func TestPlainMechanismEat(t *testing.T) {
	v := &fakeValidator{users: map[string]string{"bob": "hunter2"}}
	m := &Plain{}

	if got := m.Init(); got != nil {
		t.Errorf("Plain.Init() = %v, want nil", got)
	}

	step, err := m.Eat(v, []byte("\x00bob\x00hunter2"))
	if err != nil {
		t.Fatalf("Eat: %v", err)
	}
	if !step.Done || step.Identity.User != "bob" {
		t.Errorf("Eat step = %+v", step)
	}
}

func TestPlainMechanismEatRejectsBadPassword(t *testing.T) {
	v := &fakeValidator{users: map[string]string{"bob": "hunter2"}}
	m := &Plain{}

	_, err := m.Eat(v, []byte("\x00bob\x00wrong"))
	if err == nil {
		t.Fatal("Eat with wrong password should fail")
	}
	var mechErr *MechanismError
	if !asMechanismError(err, &mechErr) {
		t.Fatalf("error = %v, want *MechanismError", err)
	}
	if mechErr.Decode {
		t.Error("a validation failure should not be reported as a decode error")
	}
}

func TestPlainMechanismEatRejectsMalformedResponse(t *testing.T) {
	v := &fakeValidator{users: map[string]string{"bob": "hunter2"}}
	m := &Plain{}

	_, err := m.Eat(v, []byte("garbage"))
	var mechErr *MechanismError
	if !asMechanismError(err, &mechErr) || !mechErr.Decode {
		t.Fatalf("error = %v, want decode *MechanismError", err)
	}
}

func TestNewUnknownMechanism(t *testing.T) {
	if _, err := New("GSSAPI"); err != ErrUnknownMechanism {
		t.Errorf("New(GSSAPI) err = %v, want ErrUnknownMechanism", err)
	}
}

func TestNewIsCaseInsensitive(t *testing.T) {
	if _, err := New("plain"); err != nil {
		t.Errorf("New(plain) err = %v", err)
	}
}

func asMechanismError(err error, target **MechanismError) bool {
	me, ok := err.(*MechanismError)
	if !ok {
		return false
	}
	*target = me
	return true
}
