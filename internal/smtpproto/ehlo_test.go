package smtpproto

import (
	"bufio"
	"strings"
	"testing"
)

func TestEHLOResponseString(t *testing.T) {
	size := uint64(1024)
	resp := EHLOResponse{
		Domain:     "mail.example.com",
		Extensions: ExtSTARTTLS,
		Size:       &size,
		Auth:       AuthPlain,
	}

	want := "250-mail.example.com\r\n" +
		"250-STARTTLS\r\n" +
		"250-SIZE 1024\r\n" +
		"250 AUTH PLAIN\r\n"

	if got := resp.String(); got != want {
		t.Errorf("String() =\n%q\nwant\n%q", got, want)
	}
}

func TestParseEHLOResponse(t *testing.T) {
	raw := strings.Join([]string{
		"250-pio-pvt-msa3.bahnhof.se",
		"250-PIPELINING",
		"250-SIZE 52428800",
		"250-ETRN",
		"250-AUTH PLAIN LOGIN",
		"250-ENHANCEDSTATUSCODES",
		"250-8BITMIME",
		"250-DSN",
		"250-CHUNKING",
		"250 STARTTLS",
		"",
	}, "\r\n")

	resp, err := ParseEHLOResponse(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("ParseEHLOResponse: %v", err)
	}

	if resp.Domain != "pio-pvt-msa3.bahnhof.se" {
		t.Errorf("Domain = %q", resp.Domain)
	}
	wantExt := Ext8BitMIME | ExtChunking | ExtSTARTTLS | ExtEnhancedStatusCodes
	if resp.Extensions != wantExt {
		t.Errorf("Extensions = %v, want %v", resp.Extensions, wantExt)
	}
	if resp.Size == nil || *resp.Size != 52428800 {
		t.Errorf("Size = %v", resp.Size)
	}
	if resp.Auth != AuthPlain|AuthLogin {
		t.Errorf("Auth = %v", resp.Auth)
	}
}

func TestEHLOResponseRoundTrip(t *testing.T) {
	size := uint64(2048)
	resp := EHLOResponse{
		Domain:     "mail.example.com",
		Extensions: Ext8BitMIME | ExtSMTPUTF8 | ExtChunking | ExtSTARTTLS | ExtEnhancedStatusCodes,
		Size:       &size,
		Auth:       AuthLogin | AuthPlain,
	}

	got, err := ParseEHLOResponse(bufio.NewReader(strings.NewReader(resp.String())))
	if err != nil {
		t.Fatalf("ParseEHLOResponse: %v", err)
	}
	if got.Domain != resp.Domain || got.Extensions != resp.Extensions || got.Auth != resp.Auth {
		t.Errorf("roundtrip = %+v, want %+v", got, resp)
	}
	if got.Size == nil || *got.Size != *resp.Size {
		t.Errorf("Size roundtrip = %v, want %v", got.Size, resp.Size)
	}
}
