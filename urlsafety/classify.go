package urlsafety

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// AddressClass is the network category of a host.
type AddressClass int

// Address classes, from least to most sensitive.
const (
	ClassPublic AddressClass = iota
	ClassLoopback
	ClassPrivate
	ClassLinkLocal
	ClassCloudMetadata
)

var classNames = map[AddressClass]string{
	ClassPublic:        "public",
	ClassLoopback:      "loopback",
	ClassPrivate:       "private",
	ClassLinkLocal:     "link-local",
	ClassCloudMetadata: "cloud-metadata",
}

func (c AddressClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the class by name.
func (c AddressClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// localhostNames are hostnames that always resolve to the local machine.
var localhostNames = map[string]bool{
	"localhost":             true,
	"localhost.localdomain": true,
	"127.0.0.1":             true,
	"::1":                   true,
	"[::1]":                 true,
}

// cloudMetadataHosts are instance metadata endpoints of the major clouds,
// written the way they appear in URLs. Hostname returned by net/url strips
// brackets, so both spellings of the IPv6 forms are listed.
var cloudMetadataHosts = map[string]bool{
	"169.254.169.254":          true, // AWS, GCP, Azure, DigitalOcean, OpenStack
	"metadata.google.internal": true,
	"metadata.gcp.internal":    true,
	"100.100.100.200":          true, // Alibaba Cloud
	"[::ffff:169.254.169.254]": true,
	"::ffff:169.254.169.254":   true,
	"[::ffff:a9fe:a9fe]":       true,
	"::ffff:a9fe:a9fe":         true,
	"[::ffff:100.100.100.200]": true,
	"::ffff:100.100.100.200":   true,
	"[::ffff:6464:64c8]":       true,
	"::ffff:6464:64c8":         true,
	"[fd00:ec2::254]":          true, // AWS IMDS over IPv6
	"fd00:ec2::254":            true,
}

// cloudMetadataIPs holds the IPv4 metadata addresses so that any encoding of
// them classifies as cloud metadata.
var cloudMetadataIPs = map[[4]byte]bool{
	{169, 254, 169, 254}: true,
	{100, 100, 100, 200}: true,
}

// CanonicalHost lowercases host, drops one trailing dot and maps non-ASCII
// spellings through IDNA so that fullwidth or ideographic variants compare
// equal to their ASCII forms. Hosts IDNA rejects are returned lowercased.
func CanonicalHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if !isASCII(h) {
		if ascii, err := idna.Lookup.ToASCII(h); err == nil {
			h = strings.ToLower(ascii)
		}
	}
	return strings.TrimSuffix(h, ".")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Classify determines the class of hostname. ip/ok are the result of
// ParseIPv4Host (or NormalizeIPv4) for the same host. Name-based checks run first because
// metadata hostnames such as metadata.google.internal are not IP literals.
// Hosts that cannot be positively identified are ClassPublic.
func Classify(ip [4]byte, ok bool, hostname string) AddressClass {
	h := CanonicalHost(hostname)
	if isLocalhostName(h) {
		return ClassLoopback
	}
	if cloudMetadataHosts[h] {
		return ClassCloudMetadata
	}
	if !ok {
		return ClassPublic
	}
	if cloudMetadataIPs[ip] {
		return ClassCloudMetadata
	}
	return classifyIPv4(ip)
}

// ClassifyHost canonicalises host, decodes it as an IPv4 address where it is
// one and classifies it.
func ClassifyHost(host string) AddressClass {
	h := CanonicalHost(host)
	ip, ok := hostIPv4(h)
	return Classify(ip, ok, h)
}

// hostIPv4 decodes an already canonical host with ParseIPv4Host.
func hostIPv4(h string) ([4]byte, bool) {
	ip, _, ok := ParseIPv4Host(h)
	return ip, ok
}

// classifyIPv4 applies the fixed IPv4 range table.
func classifyIPv4(ip [4]byte) AddressClass {
	a, b := ip[0], ip[1]
	switch {
	case a == 10:
		return ClassPrivate
	case a == 172 && b >= 16 && b <= 31:
		return ClassPrivate
	case a == 192 && b == 168:
		return ClassPrivate
	case a == 127:
		return ClassLoopback
	case a == 0:
		// "this network"; connecting to 0.0.0.0 reaches the local host on most stacks.
		return ClassPrivate
	case a == 169 && b == 254:
		return ClassLinkLocal
	}
	return ClassPublic
}

func isLocalhostName(h string) bool {
	return localhostNames[h] || strings.HasSuffix(h, ".localhost")
}

// IsPrivateIP reports whether host is an IPv4 literal (in any encoding) in
// 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, 127.0.0.0/8 or 0.0.0.0/8.
func IsPrivateIP(host string) bool {
	ip, ok := hostIPv4(CanonicalHost(host))
	if !ok {
		return false
	}
	switch classifyIPv4(ip) {
	case ClassPrivate, ClassLoopback:
		return true
	}
	return false
}

// IsLinkLocalIP reports whether host is an IPv4 literal in 169.254.0.0/16.
func IsLinkLocalIP(host string) bool {
	ip, ok := hostIPv4(CanonicalHost(host))
	return ok && classifyIPv4(ip) == ClassLinkLocal
}

// IsLocalhost reports whether host names the local machine, either by name
// (localhost, *.localhost, ::1) or as a 127.0.0.0/8 literal in any encoding.
func IsLocalhost(host string) bool {
	h := CanonicalHost(host)
	if isLocalhostName(h) {
		return true
	}
	ip, ok := hostIPv4(h)
	return ok && ip[0] == 127
}

// IsCloudMetadataHost reports whether host is a known cloud metadata endpoint,
// by name or by address in any encoding.
func IsCloudMetadataHost(host string) bool {
	h := CanonicalHost(host)
	if cloudMetadataHosts[h] {
		return true
	}
	ip, ok := hostIPv4(h)
	return ok && cloudMetadataIPs[ip]
}
