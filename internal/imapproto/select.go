package imapproto

import "fmt"

// SelectResponse is the multi-line composite reply to a successful SELECT
// or EXAMINE (RFC 9051 §6.3.1/6.3.2): FLAGS, EXISTS, UIDVALIDITY,
// UIDNEXT, a LIST line describing the mailbox, and finally the tagged
// OK [READ-WRITE|READ-ONLY] completion.
type SelectResponse struct {
	Flags       []Flag
	Exists      uint32
	UIDValidity uint32
	NextUID     uint32
	Mailbox     ListItem
	Tag         string
	ReadOnly    bool
}

func (r SelectResponse) String() string {
	mode := "READ-WRITE"
	if r.ReadOnly {
		mode = "READ-ONLY"
	}

	return fmt.Sprintf(
		"* %s\r\n* %s\r\n* OK [UIDVALIDITY %d] UIDs valid\r\n* OK [UIDNEXT %d] Predicted next UID\r\n%s%s OK [%s] Done\r\n",
		FlagsResponse(r.Flags),
		ExistsResponse(r.Exists),
		r.UIDValidity,
		r.NextUID,
		r.Mailbox.String(),
		r.Tag,
		mode,
	)
}
