package imapsession

import "github.com/chasquid-dev/mailcore/internal/imapproto"

// Response is the untagged payload produced by a mailbox operation, to be
// written to the connection ahead of its final tagged status line (a
// Select payload already ends with that tagged line itself).
// Exactly one field is populated, matching which Dispatcher method
// produced it.
type Response struct {
	Select *imapproto.SelectResponse
	List   []imapproto.ListItem
	Status *imapproto.StatusData
	Raw    string // pre-formatted untagged lines, e.g. FETCH's "* n FETCH (...)"
	Text   string // a plain OK/NO completion message with no untagged data
}

// String renders the untagged data this Response carries, if any; for a
// Select it also includes the tagged completion line.
func (r Response) String() string {
	switch {
	case r.Select != nil:
		return r.Select.String()
	case r.List != nil:
		return imapproto.ListResponse(r.List)
	case r.Status != nil:
		return imapproto.Untagged(r.Status.String())
	case r.Raw != "":
		return r.Raw
	default:
		return ""
	}
}

// Dispatcher resolves mailbox operations against whatever backing store
// a deployment plugs in. Persistent mailbox/message storage is out of
// scope for this module (spec.md §1); Dispatcher is the seam a caller
// wires a real backend into.
type Dispatcher interface {
	Select(mailbox string, readOnly bool) (imapproto.SelectResponse, error)
	List(reference, pattern string) ([]imapproto.ListItem, error)
	Status(mailbox string, items imapproto.StatusItems) (imapproto.StatusData, error)
	Create(mailbox string) error
	Fetch(sequence imapproto.SequenceSet, items imapproto.FetchItems) (string, error)
}
