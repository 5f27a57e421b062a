package irc

import (
	"bytes"
	"errors"
)

// MaxBufferLength is how much unterminated input a connection may
// accumulate before we consider it flooding.
const MaxBufferLength = 8192

// ErrExcessFlood means a connection accumulated more than MaxBufferLength
// bytes without completing a line. The connection must be dropped.
var ErrExcessFlood = errors.New("excess flood")

// A LineBuffer accumulates raw reads from one connection and yields
// complete protocol lines.
type LineBuffer struct {
	buf []byte
}

// Append adds freshly read bytes and returns any lines they complete, in
// order. Lines end at "\n"; one trailing "\r" is stripped. Blank lines and
// lines whose content exceeds MaxLineLength-2 bytes (the CRLF counts
// against the protocol limit) are discarded.
//
// Any incomplete remainder stays buffered for the next call. If the
// remainder exceeds MaxBufferLength, Append returns ErrExcessFlood along
// with the lines extracted so far.
func (b *LineBuffer) Append(data []byte) ([]string, error) {
	b.buf = append(b.buf, data...)

	var lines []string
	for {
		idx := bytes.IndexByte(b.buf, '\n')
		if idx == -1 {
			break
		}

		line := b.buf[:idx]
		b.buf = b.buf[idx+1:]

		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			continue
		}
		if len(line) > MaxLineLength-2 {
			continue
		}

		lines = append(lines, string(line))
	}

	if len(b.buf) > MaxBufferLength {
		return lines, ErrExcessFlood
	}

	return lines, nil
}
