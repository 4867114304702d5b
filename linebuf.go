package tweetstream

import (
	"bytes"
	"errors"
	"io"
)

// errLineTooLong is returned when a line grows past the configured maximum
// without a terminator.
var errLineTooLong = errors.New("line exceeds maximum size")

// lineReader splits a live byte stream into '\n'-terminated lines.
//
// Every Read result is appended to the accumulator as soon as it arrives, and a
// line is handed out as soon as its terminator is seen, so a complete line is
// never held back waiting for a buffer to fill.
type lineReader struct {
	r       io.Reader
	chunk   []byte
	buf     []byte
	start   int // first unconsumed byte in buf
	scanned int // bytes before this offset are known not to contain '\n'
	maxLine int
	err     error
}

func newLineReader(r io.Reader, readSize, maxLine int) *lineReader {
	return &lineReader{
		r:       r,
		chunk:   make([]byte, readSize),
		maxLine: maxLine,
	}
}

// next returns the next line without its terminator (and without a trailing
// '\r'). The returned slice is only valid until the following call.
//
// At end of stream it returns io.EOF if no partial line is buffered, and
// io.ErrUnexpectedEOF otherwise.
func (lr *lineReader) next() ([]byte, error) {
	for {
		if i := bytes.IndexByte(lr.buf[lr.scanned:], '\n'); i >= 0 {
			end := lr.scanned + i
			line := bytes.TrimSuffix(lr.buf[lr.start:end], []byte{'\r'})
			if lr.maxLine > 0 && len(line) > lr.maxLine {
				return nil, errLineTooLong
			}
			lr.start = end + 1
			lr.scanned = lr.start
			return line, nil
		}
		lr.scanned = len(lr.buf)

		// One extra byte allows for a '\r' whose '\n' has not arrived yet.
		if lr.maxLine > 0 && lr.pending() > lr.maxLine+1 {
			return nil, errLineTooLong
		}
		if err := lr.fill(); err != nil {
			if errors.Is(err, io.EOF) && lr.pending() > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}

// pending reports how many received bytes are not yet part of a returned line.
func (lr *lineReader) pending() int {
	return len(lr.buf) - lr.start
}

// fill performs one Read and appends whatever arrived. A read error is only
// reported once no more bytes came with it.
func (lr *lineReader) fill() error {
	if lr.err != nil {
		return lr.err
	}
	if lr.start > 0 {
		n := copy(lr.buf, lr.buf[lr.start:])
		lr.buf = lr.buf[:n]
		lr.scanned -= lr.start
		lr.start = 0
	}

	n, err := lr.r.Read(lr.chunk)
	lr.buf = append(lr.buf, lr.chunk[:n]...)
	if err != nil {
		lr.err = err
		if n == 0 {
			return err
		}
	}
	return nil
}
