// Package imapsession implements the IMAP session state machine: command
// dispatch, state transitions (Not Authenticated / Authenticated /
// Selected / Logout), and the asynchronous operation queue that lets
// mailbox operations run concurrently with reading the next command line.
//
// It is grounded on the Rust crates/imap/src/server/{session,queue,ops}.rs,
// filling in the todo!() holes left in that file, and on the teacher's
// own internal/smtpsrv/conn.go for logging/tracing conventions.
package imapsession

import (
	"sync"

	"github.com/chasquid-dev/mailcore/internal/imapproto"
)

// Result is what an asynchronous operation eventually produces: either a
// successful Response payload, or a StatusResponse to report as an
// error.
type Result struct {
	Response Response
	Err      *imapproto.StatusResponse
}

// payload is one completed operation, paired with the tag it belongs to.
type payload struct {
	tag    string
	result Result
}

// Queue tracks in-flight asynchronous operations (keyed by command tag)
// and collects their results as they complete, decoupling the read loop
// (which keeps accepting new command lines) from operation execution
// (which may run mailbox I/O in its own goroutine).
type Queue struct {
	mu       sync.Mutex
	commands map[string]imapproto.CommandName

	results chan payload
}

func NewQueue() *Queue {
	return &Queue{
		commands: make(map[string]imapproto.CommandName),
		results:  make(chan payload, 10),
	}
}

// MustWaitBefore reports whether a new command must be held back until
// the queue drains. The policy in force here is the simplest of the
// options discussed for this: "wait if any operation is in flight",
// independent of what command is in flight or about to run.
func (q *Queue) MustWaitBefore() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands) > 0
}

// Submit registers tag as running command, and runs fn in its own
// goroutine; fn's return value is delivered through Ready/Wait once
// it completes.
func (q *Queue) Submit(tag string, command imapproto.CommandName, fn func() Result) {
	q.mu.Lock()
	if _, exists := q.commands[tag]; exists {
		// A reused in-flight tag: the client violated the tagging
		// contract. We still proceed: the first completion to arrive
		// for this tag removes it from the in-flight set, and the other
		// is still delivered when it completes.
	}
	q.commands[tag] = command
	q.mu.Unlock()

	go func() {
		q.results <- payload{tag: tag, result: fn()}
	}()
}

// Ready returns the next completed operation's tag/result if one is
// already available, without blocking.
func (q *Queue) Ready() (string, Result, bool) {
	select {
	case p := <-q.results:
		q.complete(p.tag)
		return p.tag, p.result, true
	default:
		return "", Result{}, false
	}
}

// Wait blocks for the next completed operation.
func (q *Queue) Wait() (string, Result) {
	p := <-q.results
	q.complete(p.tag)
	return p.tag, p.result
}

func (q *Queue) complete(tag string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.commands, tag)
}
