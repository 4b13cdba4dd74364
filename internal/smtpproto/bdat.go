package smtpproto

import "io"

// NextChunkFunc asks the session for the next BDAT chunk's size and
// whether it is the LAST one, driving the request/response exchange (the
// server must acknowledge each chunk with "250" before the client sends
// the next BDAT line) that lives above this package in the session state
// machine.
type NextChunkFunc func() (size int64, last bool, err error)

// BDATReader unifies a sequence of length-prefixed BDAT chunks (RFC 3030)
// into one continuous byte stream, so message storage code can read a
// BDAT-chunked message exactly like a DATA one.
type BDATReader struct {
	r         io.Reader
	next      NextChunkFunc
	remaining int64
	last      bool
	done      bool
}

// NewBDATReader starts a BDAT stream given the size/last of the chunk the
// session already read off the wire (the one whose "BDAT <size> [LAST]"
// line started the transfer), and a callback to fetch the next chunk once
// the current one is exhausted.
func NewBDATReader(r io.Reader, size int64, last bool, next NextChunkFunc) *BDATReader {
	return &BDATReader{r: r, remaining: size, last: last, next: next}
}

func (b *BDATReader) Read(p []byte) (int, error) {
	for {
		if b.done {
			return 0, io.EOF
		}

		if b.remaining > 0 {
			if int64(len(p)) > b.remaining {
				p = p[:b.remaining]
			}
			n, err := b.r.Read(p)
			b.remaining -= int64(n)
			if err != nil && err != io.EOF {
				return n, err
			}
			if n > 0 {
				return n, nil
			}
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			continue
		}

		if b.last {
			b.done = true
			return 0, io.EOF
		}

		size, last, err := b.next()
		if err != nil {
			return 0, err
		}
		b.remaining = size
		b.last = last
		if size == 0 && last {
			b.done = true
			return 0, io.EOF
		}
	}
}
