package main

import (
	"fmt"
	"strings"
	"time"
)

// 9 from RFC 1459.
const maxNickLength = 9

// 50 from RFC. Applies to the whole name, prefix included.
const maxChannelNameLength = 50

// Nicks nobody may take. Mostly service pseudo-users. Keys are canonical.
var reservedNicks = map[string]struct{}{
	"root":      {},
	"admin":     {},
	"oper":      {},
	"server":    {},
	"service":   {},
	"chanserv":  {},
	"nickserv":  {},
	"operserv":  {},
	"memoserv":  {},
	"hostserv":  {},
	"botserv":   {},
	"global":    {},
	"bot":       {},
	"guest":     {},
	"anonymous": {},
	"null":      {},
	"nobody":    {},
}

// canonicalizeNick converts the given nick to its canonical representation
// (which must be unique).
//
// RFC 1459 case folding: {}|^ are the lowercase of []\~.
func canonicalizeNick(n string) string {
	b := make([]byte, len(n))
	for i := 0; i < len(n); i++ {
		c := n[i]
		switch {
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		case c == '[':
			c = '{'
		case c == ']':
			c = '}'
		case c == '\\':
			c = '|'
		case c == '~':
			c = '^'
		}
		b[i] = c
	}
	return string(b)
}

// isValidNick checks if a nickname is valid.
//
// 1 to 9 characters. The first must be an ASCII letter or one of _[]{}\|.
// Subsequent characters may add digits and -.
func isValidNick(n string) bool {
	if len(n) == 0 || len(n) > maxNickLength {
		return false
	}

	for i := 0; i < len(n); i++ {
		c := n[i]

		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			continue
		}

		if strings.IndexByte("_[]{}\\|", c) != -1 {
			continue
		}

		if i > 0 && (c >= '0' && c <= '9' || c == '-') {
			continue
		}

		return false
	}

	return true
}

// isReservedNick says whether the nick is off limits. Comparison is on the
// canonical form.
func isReservedNick(n string) bool {
	_, reserved := reservedNicks[canonicalizeNick(n)]
	return reserved
}

// isValidChannel checks a channel name for validity: # or & prefix, at least
// one more character, at most 50 in total, and none of space, comma, BEL,
// CR, or LF.
//
// Channel names are not case folded. Lookup is by exact name.
func isValidChannel(name string) bool {
	if len(name) < 2 || len(name) > maxChannelNameLength {
		return false
	}

	if name[0] != '#' && name[0] != '&' {
		return false
	}

	for i := 1; i < len(name); i++ {
		c := name[i]
		if c == ' ' || c == ',' || c == 0x07 || c == '\r' || c == '\n' {
			return false
		}
	}

	return true
}

// isValidKey checks the characters of a channel key. Length is the caller's
// problem (over-long keys get truncated, not rejected).
func isValidKey(key string) bool {
	if len(key) == 0 {
		return false
	}

	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == ' ' || c == ',' || c == 0x07 {
			return false
		}
	}

	return true
}

// maskMatch matches a string against a mask where * matches any run
// (possibly empty) and ? matches any single character. Canonicalize both
// sides before calling.
func maskMatch(mask, s string) bool {
	mi, si := 0, 0
	star, mark := -1, 0

	for si < len(s) {
		switch {
		case mi < len(mask) && (mask[mi] == '?' || mask[mi] == s[si]):
			mi++
			si++
		case mi < len(mask) && mask[mi] == '*':
			star = mi
			mark = si
			mi++
		case star != -1:
			mi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}

	for mi < len(mask) && mask[mi] == '*' {
		mi++
	}

	return mi == len(mask)
}

// formatUptime renders a duration the way STATS reports it, e.g.
// "3 days, 02:04:09".
func formatUptime(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 0 {
		seconds = 0
	}

	days := seconds / 86400
	seconds -= days * 86400
	hours := seconds / 3600
	seconds -= hours * 3600
	minutes := seconds / 60
	seconds -= minutes * 60

	return fmt.Sprintf("%d days, %02d:%02d:%02d", days, hours, minutes,
		seconds)
}
