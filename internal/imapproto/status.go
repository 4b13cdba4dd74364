package imapproto

import (
	"fmt"
	"strconv"
	"strings"
)

// StatusItems is a bitmask of the data items requested by the STATUS
// command, adapted from imap-proto's status::Items flags! instantiation.
type StatusItems uint8

const (
	StatusMessages StatusItems = 1 << iota
	StatusUIDNext
	StatusUIDValidity
	StatusUnseen
	StatusDeleted
	StatusSize
)

var statusItemNames = []struct {
	bit  StatusItems
	name string
}{
	{StatusMessages, "MESSAGES"},
	{StatusUIDNext, "UIDNEXT"},
	{StatusUIDValidity, "UIDVALIDITY"},
	{StatusUnseen, "UNSEEN"},
	{StatusDeleted, "DELETED"},
	{StatusSize, "SIZE"},
}

// ParseStatusItems parses the parenthesized item list of a STATUS
// command, e.g. "(MESSAGES UNSEEN)".
func ParseStatusItems(tokens []string) (StatusItems, error) {
	var items StatusItems
	for _, t := range tokens {
		matched := false
		for _, entry := range statusItemNames {
			if strings.EqualFold(entry.name, t) {
				items |= entry.bit
				matched = true
				break
			}
		}
		if !matched && t != "" {
			return 0, fmt.Errorf("imapproto: unknown STATUS item %q", t)
		}
	}
	return items, nil
}

// StatusData holds the resolved values for a STATUS response; a nil
// pointer field means the corresponding item was not requested.
type StatusData struct {
	Mailbox     string
	Messages    *uint32
	UIDNext     *uint32
	UIDValidity *uint32
	Unseen      *uint32
	Deleted     *uint32
	Size        *uint32
}

// String formats the untagged "STATUS <mailbox> (...)" response.
func (d StatusData) String() string {
	var parts []string
	add := func(name string, v *uint32) {
		if v != nil {
			parts = append(parts, strconv.FormatUint(uint64(*v), 10)+" "+name)
		}
	}
	add("MESSAGES", d.Messages)
	add("UIDNEXT", d.UIDNext)
	add("UIDVALIDITY", d.UIDValidity)
	add("UNSEEN", d.Unseen)
	add("DELETED", d.Deleted)
	add("SIZE", d.Size)

	return fmt.Sprintf("STATUS %s (%s)", d.Mailbox, strings.Join(parts, " "))
}
