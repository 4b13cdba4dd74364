package imapproto

import (
	"fmt"
	"strings"
)

// FetchAttribute identifies one piece of message data a FETCH command can
// request. Only the header-ish subset from the distilled specification is
// modeled; BODY[<section>] and BODY.PEEK[<section>] partial-fetch syntax
// is explicitly out of scope (see the FETCH handler's Non-goals).
type FetchAttribute int

const (
	AttrFlags FetchAttribute = iota
	AttrInternalDate
	AttrRFC822Size
	AttrEnvelope
	AttrBody
)

func parseFetchAttribute(s string) (FetchAttribute, error) {
	switch s {
	case "FLAGS":
		return AttrFlags, nil
	case "INTERNALDATE":
		return AttrInternalDate, nil
	case "RFC822.SIZE":
		return AttrRFC822Size, nil
	case "ENVELOPE":
		return AttrEnvelope, nil
	case "BODY":
		return AttrBody, nil
	default:
		return 0, fmt.Errorf("imapproto: unknown FETCH attribute %q", s)
	}
}

// FetchItems is either one of the three RFC 9051 §6.4.5 macros (ALL,
// FAST, FULL) or an explicit attribute list.
type FetchItems struct {
	attributes []FetchAttribute
}

var (
	fastAttrs = []FetchAttribute{AttrFlags, AttrInternalDate, AttrRFC822Size}
	allAttrs  = []FetchAttribute{AttrFlags, AttrInternalDate, AttrRFC822Size, AttrEnvelope}
	fullAttrs = []FetchAttribute{AttrFlags, AttrInternalDate, AttrRFC822Size, AttrEnvelope, AttrBody}
)

// Attributes returns the resolved attribute list, expanding macros.
func (items FetchItems) Attributes() []FetchAttribute { return items.attributes }

// ParseFetchItems parses the "<fetch attribute> [<fetch attribute> ...]"
// argument of a FETCH command, including the ALL/FAST/FULL macros and a
// parenthesized attribute list.
func ParseFetchItems(s string) (FetchItems, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "ALL":
		return FetchItems{attributes: allAttrs}, nil
	case "FAST":
		return FetchItems{attributes: fastAttrs}, nil
	case "FULL":
		return FetchItems{attributes: fullAttrs}, nil
	}

	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")

	var attrs []FetchAttribute
	for _, tok := range strings.Fields(s) {
		attr, err := parseFetchAttribute(tok)
		if err != nil {
			return FetchItems{}, err
		}
		attrs = append(attrs, attr)
	}
	if len(attrs) == 0 {
		return FetchItems{}, fmt.Errorf("imapproto: empty FETCH attribute list")
	}
	return FetchItems{attributes: attrs}, nil
}
