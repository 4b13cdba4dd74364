package imapproto

import "strconv"

// Flag is an IMAP message flag (RFC 9051 §2.3.2). Keyword holds the
// literal text for any flag not in the fixed system/well-known set, since
// IMAP permits arbitrary keywords.
type Flag struct {
	name    string
	keyword string
}

var (
	FlagSeen      = Flag{name: "\\Seen"}
	FlagAnswered  = Flag{name: "\\Answered"}
	FlagFlagged   = Flag{name: "\\Flagged"}
	FlagDeleted   = Flag{name: "\\Deleted"}
	FlagDraft     = Flag{name: "\\Draft"}
	FlagRecent    = Flag{name: "\\Recent"}
	FlagForwarded = Flag{name: "$Forwarded"}
	FlagMDNSent   = Flag{name: "$MDNSent"}
	FlagJunk      = Flag{name: "$Junk"}
	FlagNotJunk   = Flag{name: "$NotJunk"}
	FlagPhishing  = Flag{name: "$Phishing"}
)

func (f Flag) String() string {
	if f.keyword != "" {
		return f.keyword
	}
	return f.name
}

// ParseFlag parses a single flag token, falling back to a keyword for
// anything outside the well-known set.
func ParseFlag(s string) Flag {
	switch s {
	case FlagSeen.name:
		return FlagSeen
	case FlagAnswered.name:
		return FlagAnswered
	case FlagFlagged.name:
		return FlagFlagged
	case FlagDeleted.name:
		return FlagDeleted
	case FlagDraft.name:
		return FlagDraft
	case FlagRecent.name:
		return FlagRecent
	case FlagForwarded.name:
		return FlagForwarded
	case FlagMDNSent.name:
		return FlagMDNSent
	case FlagJunk.name:
		return FlagJunk
	case FlagNotJunk.name:
		return FlagNotJunk
	case FlagPhishing.name:
		return FlagPhishing
	default:
		return Flag{keyword: s}
	}
}

// FlagsResponse formats the untagged "FLAGS (...)" line sent on SELECT
// and EXAMINE.
func FlagsResponse(flags []Flag) string {
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = f.String()
	}
	return "FLAGS " + FmtParenList(names)
}

// ExistsResponse formats the untagged "<n> EXISTS" line.
func ExistsResponse(n uint32) string {
	return strconv.FormatUint(uint64(n), 10) + " EXISTS"
}

// RecentResponse formats the untagged "<n> RECENT" line.
func RecentResponse(n uint32) string {
	return strconv.FormatUint(uint64(n), 10) + " RECENT"
}
