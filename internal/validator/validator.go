// Package validator implements an example sasl.Validator backed by a flat,
// human-editable file of scrypt-hashed passwords.
//
// It is grounded on the teacher's internal/userdb, keeping the same
// scrypt parameters and salt handling, but replacing the protobuf-backed
// on-disk format (userdb.pb.go, generated from userdb.proto) with a plain
// whitespace-separated text line per user, since reproducing a protobuf
// wire format here would mean fabricating a .proto schema and generated
// code for a file format nothing else in this module needs to read.
package validator

import (
	"bufio"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/scrypt"

	"github.com/chasquid-dev/mailcore/internal/normalize"
	"github.com/chasquid-dev/mailcore/internal/sasl"
)

// scrypt parameters, following the recommendations in the scrypt paper;
// matches the teacher's hard-coded internal/userdb values.
const (
	scryptLogN   = 14
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

type entry struct {
	salt []byte
	hash []byte
}

// ScryptValidator is an in-memory, file-backed user database that
// validates SASL credentials by recomputing the scrypt hash and comparing
// it in constant time.
type ScryptValidator struct {
	mu    sync.RWMutex
	users map[string]entry
}

// New returns an empty ScryptValidator.
func New() *ScryptValidator {
	return &ScryptValidator{users: map[string]entry{}}
}

// Load reads a ScryptValidator from fname. A missing file is treated as an
// empty database, matching the teacher's Load/Reload tolerance for a
// not-yet-created user file.
func Load(fname string) (*ScryptValidator, error) {
	v := New()

	f, err := os.Open(fname)
	if errors.Is(err, os.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("validator: malformed line %q", line)
		}
		salt, err := base64.StdEncoding.DecodeString(fields[1])
		if err != nil {
			return nil, fmt.Errorf("validator: bad salt for %q: %v", fields[0], err)
		}
		hash, err := base64.StdEncoding.DecodeString(fields[2])
		if err != nil {
			return nil, fmt.Errorf("validator: bad hash for %q: %v", fields[0], err)
		}
		v.users[fields[0]] = entry{salt: salt, hash: hash}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return v, nil
}

// Write rewrites fname with the current contents of v, one user per line.
// Like the teacher's DB.Write, this does a full rewrite and does not
// preserve comments or formatting.
func (v *ScryptValidator) Write(fname string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var sb strings.Builder
	for user, e := range v.users {
		fmt.Fprintf(&sb, "%s %s %s\n",
			user,
			base64.StdEncoding.EncodeToString(e.salt),
			base64.StdEncoding.EncodeToString(e.hash))
	}

	return os.WriteFile(fname, []byte(sb.String()), 0660)
}

// AddUser hashes password with a freshly generated salt and stores it
// under the PRECIS-normalized form of user.
func (v *ScryptValidator) AddUser(user, password string) error {
	norm, err := normalize.User(user)
	if err != nil {
		return fmt.Errorf("validator: invalid username: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("validator: failed to generate salt: %w", err)
	}

	hash, err := scrypt.Key([]byte(password), salt, 1<<scryptLogN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return fmt.Errorf("validator: scrypt failed: %w", err)
	}

	v.mu.Lock()
	v.users[norm] = entry{salt: salt, hash: hash}
	v.mu.Unlock()
	return nil
}

// RemoveUser removes a user, reporting whether they were present.
func (v *ScryptValidator) RemoveUser(user string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, present := v.users[user]
	delete(v.users, user)
	return present
}

// Exists reports whether user is present in the database.
func (v *ScryptValidator) Exists(user string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, present := v.users[user]
	return present
}

// Validate implements sasl.Validator: it normalizes creds.Username the
// same way AddUser does, recomputes the scrypt hash with the stored salt,
// and compares it to the stored hash in constant time.
func (v *ScryptValidator) Validate(creds sasl.Credentials) (sasl.Identity, error) {
	user, err := normalize.User(creds.Username)
	if err != nil {
		return sasl.Identity{}, &sasl.ValidationError{Reason: sasl.InvalidCredentials}
	}

	v.mu.RLock()
	e, ok := v.users[user]
	v.mu.RUnlock()
	if !ok {
		return sasl.Identity{}, &sasl.ValidationError{Reason: sasl.InvalidCredentials}
	}

	computed, err := scrypt.Key([]byte(creds.Password), e.salt, 1<<scryptLogN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return sasl.Identity{}, &sasl.ValidationError{Reason: sasl.Unknown}
	}

	if subtle.ConstantTimeCompare(computed, e.hash) != 1 {
		return sasl.Identity{}, &sasl.ValidationError{Reason: sasl.InvalidCredentials}
	}

	return sasl.Identity{User: user}, nil
}
