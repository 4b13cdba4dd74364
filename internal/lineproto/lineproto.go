// Package lineproto implements the bounded, line-oriented read/write
// primitives shared by the IMAP and SMTP protocol codecs.
package lineproto

import (
	"bufio"
	"errors"
)

// LineLimit is the maximum number of bytes allowed in a single protocol
// line, not counting the trailing CRLF. See RFC 5321 §4.5.3.1.4.
const LineLimit = 1000

// ErrLineTooLong is returned by ReadLine when a line exceeds LineLimit
// without being terminated.
var ErrLineTooLong = errors.New("lineproto: line too long")

// ReadLine reads a single CRLF- (or LF-) terminated line from r, bounded to
// LineLimit bytes. The trailing "\r\n" or "\n" is stripped from the result.
//
// It returns io.EOF if the connection closed before any bytes were read. If
// more than LineLimit bytes are seen before a newline, the remainder of the
// oversized line is drained (so the protocol dialog stays in sync) and
// ErrLineTooLong is returned, mirroring bufio.Reader.ReadLine's "isPrefix"
// handling in the teacher's own readLine.
func ReadLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", err
		}

		buf = append(buf, chunk...)
		if len(buf) > LineLimit {
			if isPrefix {
				drain(r)
			}
			return "", ErrLineTooLong
		}
		if !isPrefix {
			break
		}
	}

	return string(buf), nil
}

// drain reads and discards the rest of the current physical line.
func drain(r *bufio.Reader) {
	for {
		_, isPrefix, err := r.ReadLine()
		if err != nil || !isPrefix {
			return
		}
	}
}

// Write copies all of src into w's buffer. It does not flush w, so the
// bytes reach the underlying writer only at a later flush (or when the
// buffer fills up). It does not append a line terminator; callers must
// include "\r\n" in src when needed.
func Write(w *bufio.Writer, src string) error {
	_, err := w.WriteString(src)
	return err
}

// WriteFlush writes src to w and then flushes the writer.
func WriteFlush(w *bufio.Writer, src string) error {
	if err := Write(w, src); err != nil {
		return err
	}
	return w.Flush()
}
