package imapsession

import (
	"testing"
	"time"

	"github.com/chasquid-dev/mailcore/internal/imapproto"
)

func TestQueueMustWaitBeforeEmpty(t *testing.T) {
	q := NewQueue()
	if q.MustWaitBefore() {
		t.Error("an empty queue should not require waiting")
	}
}

func TestQueueSubmitAndWait(t *testing.T) {
	q := NewQueue()

	q.Submit("A1", imapproto.CmdSelect, func() Result {
		return Result{Response: Response{Text: "done"}}
	})

	if !q.MustWaitBefore() {
		t.Error("a submitted, unresolved operation should require waiting")
	}

	tag, result := q.Wait()
	if tag != "A1" || result.Response.Text != "done" {
		t.Errorf("Wait() = %q, %+v", tag, result)
	}

	if q.MustWaitBefore() {
		t.Error("after the only operation completes, waiting should no longer be required")
	}
}

func TestQueueReadyNonBlocking(t *testing.T) {
	q := NewQueue()

	if _, _, ok := q.Ready(); ok {
		t.Error("Ready() on an empty queue should report not-ok")
	}

	done := make(chan struct{})
	q.Submit("A1", imapproto.CmdNoop, func() Result {
		close(done)
		return Result{Response: Response{Text: "ok"}}
	})
	<-done

	// Give the result goroutine a moment to push onto the channel.
	var tag string
	var ok bool
	for i := 0; i < 100 && !ok; i++ {
		tag, _, ok = q.Ready()
		if !ok {
			time.Sleep(time.Millisecond)
		}
	}
	if !ok || tag != "A1" {
		t.Fatalf("Ready() did not surface the completed operation in time")
	}
}
