package urlsafety

// LinkOptions configures link validation. The zero value allows http, https,
// mailto and tel.
type LinkOptions struct {
	// DisableMailto rejects mailto: links.
	DisableMailto bool `json:"disableMailto,omitempty" yaml:"disable_mailto,omitempty"`
	// DisableTel rejects tel: links.
	DisableTel bool `json:"disableTel,omitempty" yaml:"disable_tel,omitempty"`
}

// AllowMailto reports whether mailto: links are accepted.
func (o LinkOptions) AllowMailto() bool { return !o.DisableMailto }

// AllowTel reports whether tel: links are accepted.
func (o LinkOptions) AllowTel() bool { return !o.DisableTel }

// ImageOptions configures image/file source validation. The zero value allows
// data:image and blob: URLs and blocks localhost, private ranges and cloud
// metadata endpoints.
type ImageOptions struct {
	DisableDataURLs    bool `json:"disableDataUrls,omitempty" yaml:"disable_data_urls,omitempty"`
	DisableBlobURLs    bool `json:"disableBlobUrls,omitempty" yaml:"disable_blob_urls,omitempty"`
	AllowPrivateIPs    bool `json:"allowPrivateIps,omitempty" yaml:"allow_private_ips,omitempty"`
	AllowLocalhost     bool `json:"allowLocalhost,omitempty" yaml:"allow_localhost,omitempty"`
	AllowCloudMetadata bool `json:"allowCloudMetadata,omitempty" yaml:"allow_cloud_metadata,omitempty"`
}

// AllowDataURLs reports whether data:image/ URLs are accepted.
func (o ImageOptions) AllowDataURLs() bool { return !o.DisableDataURLs }

// AllowBlobURLs reports whether blob: URLs are accepted.
func (o ImageOptions) AllowBlobURLs() bool { return !o.DisableBlobURLs }

// BlockPrivateIPs reports whether private and link-local addresses are rejected.
func (o ImageOptions) BlockPrivateIPs() bool { return !o.AllowPrivateIPs }

// BlockLocalhost reports whether loopback hosts are rejected.
func (o ImageOptions) BlockLocalhost() bool { return !o.AllowLocalhost }

// BlockCloudMetadata reports whether cloud metadata endpoints are rejected.
func (o ImageOptions) BlockCloudMetadata() bool { return !o.AllowCloudMetadata }

// ssrfChecksEnabled reports whether any address block is active.
func (o ImageOptions) ssrfChecksEnabled() bool {
	return o.BlockPrivateIPs() || o.BlockLocalhost() || o.BlockCloudMetadata()
}

// blocks reports whether class is rejected under o, and with which code.
func (o ImageOptions) blocks(class AddressClass) (ErrorCode, bool) {
	switch class {
	case ClassLoopback:
		return CodeLocalhost, o.BlockLocalhost()
	case ClassPrivate, ClassLinkLocal:
		return CodePrivateIP, o.BlockPrivateIPs()
	case ClassCloudMetadata:
		return CodeCloudMetadata, o.BlockCloudMetadata()
	}
	return "", false
}

// Policy binds link and image options for callers that validate many URLs
// under one configuration.
type Policy struct {
	Link  LinkOptions  `json:"link" yaml:"link"`
	Image ImageOptions `json:"image" yaml:"image"`
}

// ValidateLink validates raw as a link target under p.Link.
func (p Policy) ValidateLink(raw string) ValidationResult {
	return ValidateLinkURL(raw, p.Link)
}

// ValidateImage validates raw as an image or file source under p.Image.
func (p Policy) ValidateImage(raw string) ValidationResult {
	return IsSafeImageURL(raw, p.Image)
}
