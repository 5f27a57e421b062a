// Package irc provides the server side of the IRC wire protocol: splitting
// raw connection reads into lines and parsing lines into messages.
package irc

import (
	"errors"
	"strings"
)

// MaxLineLength is the maximum protocol line length in bytes. It includes
// the trailing CRLF.
const MaxLineLength = 512

// ErrEmptyMessage means a line held no command. Such lines are ignored
// rather than answered.
var ErrEmptyMessage = errors.New("line is empty")

// Message is a parsed protocol line from a client. Clients do not send
// prefixes, so a message is a command and its parameters.
type Message struct {
	Command string
	Params  []string
}

// ParseMessage parses a protocol line. The line must already be stripped of
// its line terminator.
//
// Tokens are separated by runs of spaces. The first token is the command,
// upper-cased. A later token beginning with ":" starts the trailing
// parameter, which runs to the end of the line with its spacing kept as
// sent.
func ParseMessage(line string) (Message, error) {
	m := Message{}

	pos := 0
	for pos < len(line) && line[pos] == ' ' {
		pos++
	}

	start := pos
	for pos < len(line) && line[pos] != ' ' {
		pos++
	}
	if start == pos {
		return Message{}, ErrEmptyMessage
	}
	m.Command = strings.ToUpper(line[start:pos])

	for {
		for pos < len(line) && line[pos] == ' ' {
			pos++
		}
		if pos == len(line) {
			break
		}

		if line[pos] == ':' {
			m.Params = append(m.Params, line[pos+1:])
			break
		}

		start = pos
		for pos < len(line) && line[pos] != ' ' {
			pos++
		}
		m.Params = append(m.Params, line[start:pos])
	}

	return m, nil
}
