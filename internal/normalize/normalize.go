// Package normalize contains functions to normalize usernames and addresses.
package normalize

import (
	"github.com/chasquid-dev/mailcore/internal/envelope"
	"golang.org/x/net/idna"
	"golang.org/x/text/secure/precis"
)

// Domain normalizes a domain name to its ASCII (punycode) form, the way we
// compare and store domains internally.
func Domain(domain string) (string, error) {
	return idna.ToASCII(domain)
}

// User normalices an username using PRECIS.
// On error, it will also return the original username to simplify callers.
func User(user string) (string, error) {
	norm, err := precis.UsernameCaseMapped.String(user)
	if err != nil {
		return user, err
	}

	return norm, nil
}

// Addr normalices an email address using PRECIS.
// On error, it will also return the original address to simplify callers.
func Addr(addr string) (string, error) {
	user, domain := envelope.Split(addr)

	user, err := User(user)
	if err != nil {
		return addr, err
	}

	return user + "@" + domain, nil
}

// DomainToUnicode normalizes the domain part of a user@domain address to
// its Unicode form, leaving the user part untouched. Addresses without an
// "@" (e.g. the null reverse-path "<>") are returned unchanged.
func DomainToUnicode(addr string) (string, error) {
	user, domain := envelope.Split(addr)
	if domain == "" {
		return addr, nil
	}

	uDomain, err := idna.ToUnicode(domain)
	if err != nil {
		return addr, err
	}

	return user + "@" + uDomain, nil
}
