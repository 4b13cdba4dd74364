package imapproto

import "testing"

func TestTaggedStatusResponseString(t *testing.T) {
	got := TaggedStatusResponse{Tag: "A0001", Status: OK, Message: "Nice"}.String()
	if got != "A0001 OK Nice\r\n" {
		t.Errorf("String() = %q", got)
	}
}

func TestCapabilitiesString(t *testing.T) {
	c := CapIMAP4 | CapIMAP4rev1 | CapIMAP4rev2 | CapSTARTTLS | CapAuthPlain | CapLoginDisabled | CapSASLIR
	want := "CAPABILITY IMAP4 IMAP4rev1 IMAP4rev2 STARTTLS AUTH=PLAIN LOGINDISABLED SASL-IR"
	if got := c.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFlagsResponseString(t *testing.T) {
	got := FlagsResponse([]Flag{FlagSeen, FlagAnswered, FlagFlagged, FlagDeleted, FlagDraft, FlagRecent, FlagForwarded})
	want := "FLAGS (\\Seen \\Answered \\Flagged \\Deleted \\Draft \\Recent $Forwarded)"
	if got != want {
		t.Errorf("FlagsResponse() = %q, want %q", got, want)
	}
}

func TestListItemString(t *testing.T) {
	delim := byte('/')
	got := ListItem{Name: "Drafts", Attributes: AttrDrafts, HierarchyDelimiter: &delim}.String()
	if got != "* LIST (\\Drafts) \"/\" \"Drafts\"\r\n" {
		t.Errorf("ListItem.String() = %q", got)
	}

	got = ListItem{Name: "INBOX", Attributes: AttrNoSelect | AttrNoInferiors}.String()
	if got != "* LIST (\\Noinferiors \\Noselect) NIL \"INBOX\"\r\n" {
		t.Errorf("ListItem.String() = %q", got)
	}
}

func TestStatusDataString(t *testing.T) {
	unseen, deleted := uint32(3), uint32(1)
	got := StatusData{Mailbox: "INBOX", Unseen: &unseen, Deleted: &deleted}.String()
	if got != "STATUS INBOX (3 UNSEEN 1 DELETED)" {
		t.Errorf("StatusData.String() = %q", got)
	}
}

func TestParseStatusItems(t *testing.T) {
	items, err := ParseStatusItems([]string{"MESSAGES", "UNSEEN"})
	if err != nil {
		t.Fatalf("ParseStatusItems: %v", err)
	}
	if items != StatusMessages|StatusUnseen {
		t.Errorf("ParseStatusItems = %v", items)
	}
}

func TestParseStatusItemsRejectsUnknown(t *testing.T) {
	if _, err := ParseStatusItems([]string{"BOGUS"}); err == nil {
		t.Error("ParseStatusItems with unknown item should fail")
	}
}

func TestParseSequenceSet(t *testing.T) {
	got, err := ParseSequenceSet("1:3,5,6:*")
	if err != nil {
		t.Fatalf("ParseSequenceSet: %v", err)
	}
	if got.String() != "1:3,5,6:*" {
		t.Errorf("roundtrip = %q", got.String())
	}
}

func TestParseFetchItemsMacroMatchesExplicitList(t *testing.T) {
	all, err := ParseFetchItems("ALL")
	if err != nil {
		t.Fatalf("ParseFetchItems(ALL): %v", err)
	}
	explicit, err := ParseFetchItems("(FLAGS INTERNALDATE RFC822.SIZE ENVELOPE)")
	if err != nil {
		t.Fatalf("ParseFetchItems(explicit): %v", err)
	}
	got, want := all.Attributes(), explicit.Attributes()
	if len(got) != len(want) {
		t.Fatalf("ALL macro = %v, want same length as %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ALL macro = %v, want %v", got, want)
		}
	}
}

func TestParseTaggedCommandLogin(t *testing.T) {
	tc, err := ParseTaggedCommand(`A1 login alice "hunter 2"`)
	if err != nil {
		t.Fatalf("ParseTaggedCommand: %v", err)
	}
	if tc.Tag != "A1" || tc.Command.Name != CmdLogin {
		t.Fatalf("tc = %+v", tc)
	}
	if tc.Command.Username != "alice" || tc.Command.Password != "hunter 2" {
		t.Errorf("login args = %q/%q", tc.Command.Username, tc.Command.Password)
	}
}

func TestParseTaggedCommandLoginSyntaxError(t *testing.T) {
	_, err := ParseTaggedCommand("A1 login bob")
	var perr *ParseError
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	if pe, ok := err.(*ParseError); ok {
		perr = pe
	}
	if perr == nil {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}

func TestParseTaggedCommandRenameEscapedQuote(t *testing.T) {
	tc, err := ParseTaggedCommand(`A1 rename "Say \"Hi\"" "Archive"`)
	if err != nil {
		t.Fatalf("ParseTaggedCommand: %v", err)
	}
	if tc.Command.Name != CmdRename {
		t.Fatalf("tc.Command = %+v", tc.Command)
	}
	if tc.Command.Mailbox != `Say "Hi"` {
		t.Errorf("Mailbox = %q, want %q", tc.Command.Mailbox, `Say "Hi"`)
	}
	if tc.Command.NewMailbox != "Archive" {
		t.Errorf("NewMailbox = %q, want %q", tc.Command.NewMailbox, "Archive")
	}
}

func TestParseTaggedCommandLoginEscapedBackslash(t *testing.T) {
	tc, err := ParseTaggedCommand(`A1 login alice "back\\slash"`)
	if err != nil {
		t.Fatalf("ParseTaggedCommand: %v", err)
	}
	if tc.Command.Password != `back\slash` {
		t.Errorf("Password = %q, want %q", tc.Command.Password, `back\slash`)
	}
}

func TestParseTaggedCommandUnrecognized(t *testing.T) {
	_, err := ParseTaggedCommand("A1 bogus")
	if err != ErrUnrecognizedCommand {
		t.Errorf("err = %v, want ErrUnrecognizedCommand", err)
	}
}

func TestParseTaggedCommandUID(t *testing.T) {
	tc, err := ParseTaggedCommand("A1 UID FETCH 1:* (FLAGS)")
	if err != nil {
		t.Fatalf("ParseTaggedCommand: %v", err)
	}
	if tc.Command.Name != CmdFetch || !tc.Command.IsUID {
		t.Fatalf("tc.Command = %+v", tc.Command)
	}
	if tc.Command.Sequence != "1:*" {
		t.Errorf("Sequence = %q", tc.Command.Sequence)
	}
}

func TestSelectResponseString(t *testing.T) {
	delim := byte('/')
	resp := SelectResponse{
		Flags:       []Flag{FlagSeen, FlagAnswered, FlagFlagged},
		Exists:      37,
		UIDValidity: 3857529045,
		NextUID:     4392,
		Mailbox:     ListItem{Name: "Drafts", Attributes: AttrDrafts, HierarchyDelimiter: &delim},
		Tag:         "A0016",
		ReadOnly:    false,
	}

	want := "* FLAGS (\\Seen \\Answered \\Flagged)\r\n" +
		"* 37 EXISTS\r\n" +
		"* OK [UIDVALIDITY 3857529045] UIDs valid\r\n" +
		"* OK [UIDNEXT 4392] Predicted next UID\r\n" +
		"* LIST (\\Drafts) \"/\" \"Drafts\"\r\n" +
		"A0016 OK [READ-WRITE] Done\r\n"

	if got := resp.String(); got != want {
		t.Errorf("SelectResponse.String() =\n%q\nwant\n%q", got, want)
	}
}
