package imapproto

import "strings"

// Capabilities is a bitmask of server capabilities advertised in the
// CAPABILITY response, adapted from the Rust flags! macro instantiation
// in imap-proto/src/command/capability.rs into a plain Go uint bitmask,
// since no third-party bitflag library appeared anywhere in the example
// corpus.
type Capabilities uint8

const (
	CapIMAP4 Capabilities = 1 << iota
	CapIMAP4rev1
	CapIMAP4rev2
	CapSTARTTLS
	CapAuthPlain
	CapLoginDisabled
	CapSASLIR
)

var capabilityNames = []struct {
	bit  Capabilities
	name string
}{
	{CapIMAP4, "IMAP4"},
	{CapIMAP4rev1, "IMAP4rev1"},
	{CapIMAP4rev2, "IMAP4rev2"},
	{CapSTARTTLS, "STARTTLS"},
	{CapAuthPlain, "AUTH=PLAIN"},
	{CapLoginDisabled, "LOGINDISABLED"},
	{CapSASLIR, "SASL-IR"},
}

// Names returns the capability names set in c, in canonical order.
func (c Capabilities) Names() []string {
	var names []string
	for _, entry := range capabilityNames {
		if c&entry.bit != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

// String formats the full "CAPABILITY ..." untagged response payload.
func (c Capabilities) String() string {
	return "CAPABILITY " + strings.Join(c.Names(), " ")
}

// ParseCapabilities parses a space-separated list of capability tokens
// (as used by the ENABLE command), ignoring unrecognized ones.
func ParseCapabilities(tokens []string) Capabilities {
	var c Capabilities
	for _, t := range tokens {
		for _, entry := range capabilityNames {
			if strings.EqualFold(entry.name, t) {
				c |= entry.bit
			}
		}
	}
	return c
}
