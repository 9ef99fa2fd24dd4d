package resolver

import (
	"net"
	"strconv"
	"strings"
)

// ParseQuad validates s as a dotted-quad IPv4 address: exactly three
// dots, each of the four octets a decimal number in [0,255] with no
// extra characters. net.ParseIP alone is too permissive (it also
// accepts IPv6 and some non-canonical forms), so this re-validates the
// strict dotted-quad shape.
func ParseQuad(s string) (net.IP, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil, false
	}
	octets := make([]byte, 4)
	for i, p := range parts {
		if p == "" || (len(p) > 1 && p[0] == '0') {
			return nil, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return nil, false
		}
		octets[i] = byte(n)
	}
	return net.IPv4(octets[0], octets[1], octets[2], octets[3]), true
}

// IsValidHostName applies the RFC 952/1123 shape check: the
// first character must be alphanumeric, the remaining characters must
// be in [-.A-Za-z0-9], a trailing '-' is forbidden, and a name that is
// entirely numeric-with-three-dots is rejected even when its octets are
// out of range; ParseQuad is the path for anything address-shaped.
func IsValidHostName(s string) bool {
	if s == "" {
		return false
	}
	if looksLikeQuad(s) {
		return false
	}
	if !isAlphaNum(rune(s[0])) {
		return false
	}
	if s[len(s)-1] == '-' {
		return false
	}
	for _, r := range s {
		if !isAlphaNum(r) && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

// looksLikeQuad reports whether s is made up only of digits and exactly
// three dots, the "all-numeric-with-three-dots" shape RFC 952 forbids
// as a host name regardless of whether it parses as a real address.
func looksLikeQuad(s string) bool {
	dots := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
		case r < '0' || r > '9':
			return false
		}
	}
	return dots == 3
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
