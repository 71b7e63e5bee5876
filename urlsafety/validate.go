package urlsafety

import (
	"fmt"
	"strings"
)

// Messages attached to rejected verdicts.
const (
	msgEmpty           = "URL cannot be empty"
	msgInvalid         = "Invalid URL format"
	msgMissingHost     = "URL must include a hostname"
	msgInvalidHost     = "Invalid IP address in hostname"
	msgDataNotAllowed  = "Data URLs are not allowed"
	msgDataNotImage    = "Only image data URLs are allowed"
	msgBlobNotAllowed  = "Blob URLs are not allowed"
	msgLocalhost       = "Localhost URLs are not allowed"
	msgPrivateIP       = "Private IP addresses are not allowed"
	msgCloudMetadata   = "Cloud metadata endpoints are not allowed"
	msgDangerousPrefix = "Dangerous protocol detected: %s"
	msgProtocolDenied  = "Protocol %s is not allowed"
)

var blockMessages = map[ErrorCode]string{
	CodeInvalidURL:    msgInvalidHost,
	CodeLocalhost:     msgLocalhost,
	CodePrivateIP:     msgPrivateIP,
	CodeCloudMetadata: msgCloudMetadata,
}

// ValidateLinkURL decides whether raw may be used as a link target (href).
// Links are opened by the reader's own browser, so only script-capable
// schemes are rejected; no address checks are made. Relative references are
// accepted. On success NormalizedURL holds the sanitized value.
func ValidateLinkURL(raw string, opts LinkOptions) ValidationResult {
	s := Sanitize(raw)
	if s == "" {
		return invalid(CodeInvalidURL, msgEmpty)
	}

	lower := strings.ToLower(s)
	if p := dangerousPrefix(lower, DangerousProtocols); p != "" {
		return invalid(CodeDangerousProtocol, fmt.Sprintf(msgDangerousPrefix, p))
	}

	u, ok := parseAbsolute(s)
	if !ok {
		// Relative reference, or input a strict parser rejects. The dangerous
		// prefix check above already ran on the same string.
		return valid(s)
	}

	proto := protocolOf(u)
	if !IsAllowedLinkProtocol(proto, opts) {
		return invalid(CodeDangerousProtocol, fmt.Sprintf(msgProtocolDenied, proto))
	}
	return valid(s)
}

// IsSafeLinkURL reports whether ValidateLinkURL accepts raw.
func IsSafeLinkURL(raw string, opts LinkOptions) bool {
	return ValidateLinkURL(raw, opts).IsValid
}

// GetSafeHref returns the sanitized form of raw when it is a safe link under
// the default link policy, otherwise "". The result can be placed directly in
// an href attribute.
func GetSafeHref(raw string) string {
	res := ValidateLinkURL(raw, LinkOptions{})
	if !res.IsValid {
		return ""
	}
	return res.NormalizedURL
}

// IsSafeImageURL decides whether raw may be used as an image or file source.
// data:image/ and blob: URLs are accepted unless disabled; http and https
// URLs are additionally checked against loopback, private, link-local and
// cloud metadata addresses. On success NormalizedURL holds the sanitized
// (not re-encoded) value.
func IsSafeImageURL(raw string, opts ImageOptions) ValidationResult {
	s := Sanitize(raw)
	if s == "" {
		return invalid(CodeInvalidURL, msgEmpty)
	}

	lower := strings.ToLower(s)
	if p := dangerousPrefix(lower, scriptProtocols); p != "" {
		return invalid(CodeDangerousProtocol, fmt.Sprintf(msgDangerousPrefix, p))
	}

	if strings.HasPrefix(lower, schemeData) {
		if !opts.AllowDataURLs() {
			return invalid(CodeDataURLNotAllowed, msgDataNotAllowed)
		}
		if !strings.HasPrefix(lower, dataImagePrefix) {
			return invalid(CodeInvalidURL, msgDataNotImage)
		}
		return valid(s)
	}

	if strings.HasPrefix(lower, schemeBlob) {
		if !opts.AllowBlobURLs() {
			return invalid(CodeBlobURLNotAllowed, msgBlobNotAllowed)
		}
		return valid(s)
	}

	u, ok := parseAbsolute(s)
	if !ok {
		// The strict parser refuses some bracketed hosts (IPv4-mapped IPv6)
		// that clients still connect to; those keep their address code.
		if proto, host, found := bracketedHost(s); found && imageFetchProtocols[proto] {
			if code, blocked := blockedHost(host, opts); blocked {
				return invalid(code, blockMessages[code])
			}
		}
		return invalid(CodeInvalidURL, msgInvalid)
	}
	proto := protocolOf(u)
	if !imageFetchProtocols[proto] {
		return invalid(CodeDangerousProtocol, fmt.Sprintf(msgProtocolDenied, proto))
	}

	host := u.Hostname()
	if host == "" {
		return invalid(CodeInvalidURL, msgMissingHost)
	}

	if code, blocked := blockedHost(host, opts); blocked {
		return invalid(code, blockMessages[code])
	}
	return valid(s)
}

// blockedHost classifies host and reports the code of the first enabled
// block it hits. A host ending in a number that is not a valid IPv4 address
// is INVALID_URL under any options. A metadata address whose metadata block
// is disabled still falls back to its numeric range, so 169.254.169.254
// stays blocked as link-local while private addresses are blocked.
func blockedHost(host string, opts ImageOptions) (ErrorCode, bool) {
	h := CanonicalHost(host)
	ip, numeric, ok := ParseIPv4Host(h)
	if numeric && !ok {
		return CodeInvalidURL, true
	}
	if !opts.ssrfChecksEnabled() {
		return "", false
	}
	class := Classify(ip, ok, h)
	if code, blocked := opts.blocks(class); blocked {
		return code, true
	}
	if class == ClassCloudMetadata && ok {
		return opts.blocks(classifyIPv4(ip))
	}
	return "", false
}

// SSRFCheckResult is the verdict of CheckSSRF.
type SSRFCheckResult struct {
	IsSafe    bool         `json:"isSafe"`
	Hostname  string       `json:"hostname,omitempty"`
	Class     AddressClass `json:"class"`
	ErrorCode ErrorCode    `json:"errorCode,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// CheckSSRF reports whether a server may fetch raw. Only absolute http and
// https URLs with a hostname qualify, and every address block is enforced.
// The hostname is inspected literally; no DNS resolution takes place.
func CheckSSRF(raw string) SSRFCheckResult {
	s := Sanitize(raw)
	if s == "" {
		return SSRFCheckResult{ErrorCode: CodeInvalidURL, Reason: msgEmpty}
	}

	u, ok := parseAbsolute(s)
	if !ok {
		if proto, host, found := bracketedHost(s); found && imageFetchProtocols[proto] {
			if res := checkHost(host); !res.IsSafe {
				return res
			}
		}
		return SSRFCheckResult{ErrorCode: CodeInvalidURL, Reason: msgInvalid}
	}
	proto := protocolOf(u)
	if !imageFetchProtocols[proto] {
		return SSRFCheckResult{
			ErrorCode: CodeDangerousProtocol,
			Reason:    fmt.Sprintf(msgProtocolDenied, proto),
		}
	}

	host := u.Hostname()
	if host == "" {
		return SSRFCheckResult{ErrorCode: CodeInvalidURL, Reason: msgMissingHost}
	}
	return checkHost(host)
}

// checkHost classifies host under the strict image policy.
func checkHost(host string) SSRFCheckResult {
	h := CanonicalHost(host)
	ip, numeric, isIP := ParseIPv4Host(h)
	if numeric && !isIP {
		return SSRFCheckResult{Hostname: h, ErrorCode: CodeInvalidURL, Reason: msgInvalidHost}
	}
	class := Classify(ip, isIP, h)
	res := SSRFCheckResult{Hostname: h, Class: class}
	if code, blocked := (ImageOptions{}).blocks(class); blocked {
		res.ErrorCode = code
		res.Reason = blockMessages[code]
		return res
	}
	res.IsSafe = true
	return res
}
