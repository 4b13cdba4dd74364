package imapproto

import "strings"

// ListAttributes is a bitmask of mailbox attributes reported in LIST
// responses (RFC 9051 §7.3.1, plus the RFC 6154 special-use attributes),
// adapted from imap-proto's list::Attributes flags! instantiation.
type ListAttributes uint16

const (
	AttrNonExistent ListAttributes = 1 << iota
	AttrNoInferiors
	AttrNoSelect
	AttrHasChildren
	AttrHasNoChildren
	AttrMarked
	AttrUnmarked
	AttrSubscribed
	AttrRemote
	AttrAll
	AttrArchive
	AttrDrafts
	AttrFlagged
	AttrJunk
	AttrSent
	AttrTrash
)

var listAttributeNames = []struct {
	bit  ListAttributes
	name string
}{
	{AttrNonExistent, "\\NonExistent"},
	{AttrNoInferiors, "\\Noinferiors"},
	{AttrNoSelect, "\\Noselect"},
	{AttrHasChildren, "\\HasChildren"},
	{AttrHasNoChildren, "\\HasNoChildren"},
	{AttrMarked, "\\Marked"},
	{AttrUnmarked, "\\Unmarked"},
	{AttrSubscribed, "\\Subscribed"},
	{AttrRemote, "\\Remote"},
	{AttrAll, "\\All"},
	{AttrArchive, "\\Archive"},
	{AttrDrafts, "\\Drafts"},
	{AttrFlagged, "\\Flagged"},
	{AttrJunk, "\\Junk"},
	{AttrSent, "\\Sent"},
	{AttrTrash, "\\Trash"},
}

// Names returns the attribute names set in a, in canonical order.
func (a ListAttributes) Names() []string {
	var names []string
	for _, entry := range listAttributeNames {
		if a&entry.bit != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

func (a ListAttributes) String() string {
	return FmtParenList(a.Names())
}

// ListItem is one mailbox entry in a LIST (or LSUB) response.
type ListItem struct {
	Name              string
	Attributes        ListAttributes
	HierarchyDelimiter *byte
}

func NewListItem(name string, attrs ListAttributes) ListItem {
	return ListItem{Name: name, Attributes: attrs}
}

func (l ListItem) delimiterString() string {
	if l.HierarchyDelimiter == nil {
		return "NIL"
	}
	return "\"" + string(*l.HierarchyDelimiter) + "\""
}

// String formats the untagged "* LIST (...) <delimiter> "<name>"" line.
func (l ListItem) String() string {
	return "* LIST " + l.Attributes.String() + " " + l.delimiterString() + " \"" + l.Name + "\"\r\n"
}

// ListResponse formats every item of a LIST command's result.
func ListResponse(items []ListItem) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(item.String())
	}
	return sb.String()
}
