package urlsafety

import (
	"net/netip"
	"strconv"
	"strings"
)

const (
	maxIPv4     = 0xFFFFFFFF
	mappedV4Pfx = "::ffff:"
)

var loopbackV4 = [4]byte{127, 0, 0, 1}

// NormalizeIPv4 parses host as an IPv4 literal in any encoding browsers and
// HTTP clients accept and returns its octets in network order:
//
//   - IPv6 loopback/unspecified (::1, ::, [::1], 0:0:0:0:0:0:0:1) → 127.0.0.1
//   - IPv4-mapped IPv6 (::ffff:a.b.c.d, ::ffff:7f00:1) → the embedded address
//   - one decimal integer (2130706433), octal if it has a leading zero
//   - one hexadecimal integer (0x7f000001)
//   - four dot-separated parts, each decimal, octal (0177) or hex (0x7f)
//
// ok is false when host is not an IPv4 literal in any of these forms. That is
// not a security failure; it only means the host cannot be classified by
// literal inspection.
func NormalizeIPv4(host string) (ip [4]byte, ok bool) {
	h := strings.ToLower(strings.TrimSpace(host))
	if len(h) >= 2 && h[0] == '[' && h[len(h)-1] == ']' {
		h = h[1 : len(h)-1]
	}
	if h == "" {
		return ip, false
	}

	if strings.Contains(h, ":") {
		return normalizeIPv6(h)
	}

	if !strings.Contains(h, ".") {
		n, ok := parseInteger(h)
		if !ok || n > maxIPv4 {
			return ip, false
		}
		return [4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}, true
	}

	parts := strings.Split(h, ".")
	if len(parts) != 4 {
		return ip, false
	}
	for i, part := range parts {
		n, ok := parseInteger(part)
		if !ok || n > 255 {
			return [4]byte{}, false
		}
		ip[i] = byte(n)
	}
	return ip, true
}

// normalizeIPv6 reduces IPv6 loopback/unspecified literals to 127.0.0.1 and
// IPv4-mapped addresses to their IPv4 part. Other IPv6 addresses are not
// IPv4 literals.
func normalizeIPv6(h string) ([4]byte, bool) {
	// The dotted tail may itself use octal or hex parts, which netip rejects.
	if rest, found := strings.CutPrefix(h, mappedV4Pfx); found && strings.Contains(rest, ".") {
		return NormalizeIPv4(rest)
	}

	addr, err := netip.ParseAddr(h)
	if err != nil {
		return [4]byte{}, false
	}
	addr = addr.WithZone("")
	switch {
	case addr.Is4In6():
		return addr.Unmap().As4(), true
	case addr.Is6() && (addr.IsLoopback() || addr.IsUnspecified()):
		return loopbackV4, true
	}
	return [4]byte{}, false
}

// parseInteger reads s as hexadecimal (0x prefix), octal (leading 0 followed
// only by 0-7) or decimal. Signs, underscores and empty strings are rejected;
// a bare "0x" reads as zero the way browsers do.
func parseInteger(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}

	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		digits := s[2:]
		if digits == "" {
			return 0, true
		}
		if !allDigits(digits, isHexDigit) {
			return 0, false
		}
		n, err := strconv.ParseUint(digits, 16, 64)
		return n, err == nil
	}

	if !allDigits(s, isDecimalDigit) {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' && allDigits(s[1:], isOctalDigit) {
		n, err := strconv.ParseUint(s[1:], 8, 64)
		return n, err == nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil
}

func allDigits(s string, pred func(byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !pred(s[i]) {
			return false
		}
	}
	return true
}

func isDecimalDigit(c byte) bool { return c >= '0' && c <= '9' }
func isOctalDigit(c byte) bool   { return c >= '0' && c <= '7' }

func isHexDigit(c byte) bool {
	return isDecimalDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// FormatIPv4 renders ip in dotted-decimal form.
func FormatIPv4(ip [4]byte) string {
	return netip.AddrFrom4(ip).String()
}

// ParseIPv4Host reads host the way browsers read a URL host. Every form
// NormalizeIPv4 accepts is decoded, and so is any host whose last label is
// numeric: such hosts are IPv4 addresses, including the inet_aton shorthands
// of one to three parts where the last part fills the remaining bytes
// (127.1, 10.0.1, 169.254.43518).
//
// numeric reports whether host must be treated as an address; ok reports
// whether it decoded. A numeric host that does not decode (1.2.3.4.5,
// 256.1, a.0x1) is not a valid URL host.
func ParseIPv4Host(host string) (ip [4]byte, numeric, ok bool) {
	if ip, ok := NormalizeIPv4(host); ok {
		return ip, true, true
	}
	h := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if !endsInNumber(h) {
		return ip, false, false
	}

	parts := strings.Split(h, ".")
	if len(parts) > 4 {
		return ip, true, false
	}
	nums := make([]uint64, len(parts))
	for i, part := range parts {
		n, ok := parseInteger(part)
		if !ok {
			return ip, true, false
		}
		nums[i] = n
	}

	last := len(nums) - 1
	for i := 0; i < last; i++ {
		if nums[i] > 255 {
			return [4]byte{}, true, false
		}
		ip[i] = byte(nums[i])
	}
	if nums[last] >= 1<<(8*(4-last)) {
		return [4]byte{}, true, false
	}
	v := nums[last]
	for i := 3; i >= last; i-- {
		ip[i] = byte(v)
		v >>= 8
	}
	return ip, true, true
}

// endsInNumber reports whether the last label of h is a number in any base.
func endsInNumber(h string) bool {
	if h == "" || strings.Contains(h, ":") {
		return false
	}
	labels := strings.Split(h, ".")
	_, ok := parseInteger(labels[len(labels)-1])
	return ok
}
