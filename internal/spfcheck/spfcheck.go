// Package spfcheck wraps blitiri.com.ar/go/spf into the single call a
// SMTP MAIL FROM handler needs: check the sender's SPF record against the
// connecting IP, and report the result for logging/rejection decisions.
//
// It is grounded on the teacher's internal/smtpsrv/conn.go:checkSPF, which
// skips the check for authenticated connections and tolerates lookup
// errors rather than failing the transaction outright.
package spfcheck

import (
	"net"

	"blitiri.com.ar/go/spf"

	"github.com/chasquid-dev/mailcore/internal/envelope"
	"github.com/chasquid-dev/mailcore/internal/trace"
)

// Checker evaluates SPF for incoming MAIL FROM addresses.
type Checker struct {
	// Disable skips all checks, used by tests that do not want to leak
	// DNS lookups.
	Disable bool
}

// Check evaluates the SPF record for addr, given the connecting remote
// address. Authenticated connections are not checked: they're allowed to
// relay regardless of what their claimed sender's SPF record says.
//
// A non-TCP remote address (e.g. a Unix socket, used in tests) is treated
// as passing with an empty result, since there is no IP to evaluate.
func (c *Checker) Check(tr *trace.Trace, remoteAddr net.Addr, addr string, authenticated bool) (spf.Result, error) {
	if authenticated || c.Disable {
		return "", nil
	}

	tcp, ok := remoteAddr.(*net.TCPAddr)
	if !ok {
		return "", nil
	}

	res, err := spf.CheckHostWithSender(
		tcp.IP, envelope.DomainOf(addr), addr,
		spf.WithTraceFunc(func(f string, a ...interface{}) {
			tr.Debugf(f, a...)
		}))

	tr.Debugf("SPF %v (%v)", res, err)
	return res, err
}
