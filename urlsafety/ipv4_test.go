package urlsafety

import "testing"

func TestNormalizeIPv4(t *testing.T) {
	tests := []struct {
		host   string
		want   [4]byte
		wantOK bool
	}{
		// Loopback in every encoding
		{"127.0.0.1", [4]byte{127, 0, 0, 1}, true},
		{"2130706433", [4]byte{127, 0, 0, 1}, true},
		{"0x7f000001", [4]byte{127, 0, 0, 1}, true},
		{"0X7F000001", [4]byte{127, 0, 0, 1}, true},
		{"0177.0.0.1", [4]byte{127, 0, 0, 1}, true},
		{"0x7f.0.0.1", [4]byte{127, 0, 0, 1}, true},
		{"0x7f.00.0x0.01", [4]byte{127, 0, 0, 1}, true},
		{"017700000001", [4]byte{127, 0, 0, 1}, true},

		// IPv6 loopback and unspecified
		{"::1", [4]byte{127, 0, 0, 1}, true},
		{"[::1]", [4]byte{127, 0, 0, 1}, true},
		{"::", [4]byte{127, 0, 0, 1}, true},
		{"0:0:0:0:0:0:0:1", [4]byte{127, 0, 0, 1}, true},

		// IPv4-mapped IPv6
		{"::ffff:127.0.0.1", [4]byte{127, 0, 0, 1}, true},
		{"[::ffff:7f00:1]", [4]byte{127, 0, 0, 1}, true},
		{"::ffff:0x7f.0.0.1", [4]byte{127, 0, 0, 1}, true},
		{"::ffff:192.168.1.1", [4]byte{192, 168, 1, 1}, true},
		{"::FFFF:A9FE:A9FE", [4]byte{169, 254, 169, 254}, true},

		// Private address spellings
		{"3232235777", [4]byte{192, 168, 1, 1}, true},
		{"0300.0250.01.01", [4]byte{192, 168, 1, 1}, true},
		{"0xC0.0xA8.0x01.0x01", [4]byte{192, 168, 1, 1}, true},
		{"2852039166", [4]byte{169, 254, 169, 254}, true},

		// Boundaries
		{"0", [4]byte{0, 0, 0, 0}, true},
		{"4294967295", [4]byte{255, 255, 255, 255}, true},
		{"0xffffffff", [4]byte{255, 255, 255, 255}, true},
		{"08.0.0.1", [4]byte{8, 0, 0, 1}, true},
		{"0x.0.0.1", [4]byte{0, 0, 0, 1}, true},

		// Not IPv4 literals
		{"4294967296", [4]byte{}, false},
		{"0x100000000", [4]byte{}, false},
		{"256.0.0.1", [4]byte{}, false},
		{"0x100.0.0.1", [4]byte{}, false},
		{"0400.0.0.1", [4]byte{}, false},
		{"1.2.3", [4]byte{}, false},
		{"1.2.3.4.5", [4]byte{}, false},
		{"1..2.3", [4]byte{}, false},
		{"0x1g.0.0.1", [4]byte{}, false},
		{"-1.0.0.0", [4]byte{}, false},
		{"+1.0.0.0", [4]byte{}, false},
		{"1_0.0.0.1", [4]byte{}, false},
		{"example.com", [4]byte{}, false},
		{"metadata.google.internal", [4]byte{}, false},
		{"2001:db8::1", [4]byte{}, false},
		{"fe80::1", [4]byte{}, false},
		{"", [4]byte{}, false},
		{"[]", [4]byte{}, false},
		{"99999999999999999999999", [4]byte{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, ok := NormalizeIPv4(tt.host)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeIPv4(%q) ok = %v, want %v", tt.host, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("NormalizeIPv4(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestNormalizeIPv4_FormatInvariant(t *testing.T) {
	encodings := []string{"127.0.0.1", "2130706433", "0x7f000001", "0177.0.0.1"}
	want := [4]byte{127, 0, 0, 1}
	for _, e := range encodings {
		got, ok := NormalizeIPv4(e)
		if !ok || got != want {
			t.Errorf("NormalizeIPv4(%q) = %v, %v; want %v", e, got, ok, want)
		}
	}
}

func TestFormatIPv4(t *testing.T) {
	if got := FormatIPv4([4]byte{169, 254, 169, 254}); got != "169.254.169.254" {
		t.Errorf("FormatIPv4 = %q", got)
	}
}

func BenchmarkNormalizeIPv4(b *testing.B) {
	hosts := []string{"127.0.0.1", "0x7f000001", "0177.0.0.1", "example.com", "::ffff:10.0.0.1"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NormalizeIPv4(hosts[i%len(hosts)])
	}
}

func TestParseIPv4Host(t *testing.T) {
	tests := []struct {
		host        string
		want        [4]byte
		wantNumeric bool
		wantOK      bool
	}{
		// Everything NormalizeIPv4 reads
		{"127.0.0.1", [4]byte{127, 0, 0, 1}, true, true},
		{"0x7f000001", [4]byte{127, 0, 0, 1}, true, true},
		{"[::ffff:7f00:1]", [4]byte{127, 0, 0, 1}, true, true},

		// inet_aton shorthands
		{"127.1", [4]byte{127, 0, 0, 1}, true, true},
		{"0x7f.1", [4]byte{127, 0, 0, 1}, true, true},
		{"10.1", [4]byte{10, 0, 0, 1}, true, true},
		{"192.168.1", [4]byte{192, 168, 0, 1}, true, true},
		{"169.254.43518", [4]byte{169, 254, 169, 254}, true, true},
		{"169.16689662", [4]byte{169, 254, 169, 254}, true, true},
		{"127.1.", [4]byte{127, 0, 0, 1}, true, true},
		{"10.0xffffff", [4]byte{10, 255, 255, 255}, true, true},

		// Numeric but not an address
		{"1.2.3.4.5", [4]byte{}, true, false},
		{"256.1", [4]byte{}, true, false},
		{"10.0x1000000", [4]byte{}, true, false},
		{"1.2.65536", [4]byte{}, true, false},
		{"1..1", [4]byte{}, true, false},
		{"example.0x1", [4]byte{}, true, false},
		{"a.1", [4]byte{}, true, false},

		// Names
		{"example.com", [4]byte{}, false, false},
		{"1.2.3.com", [4]byte{}, false, false},
		{"localhost", [4]byte{}, false, false},
		{"2001:db8::1", [4]byte{}, false, false},
		{"", [4]byte{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, numeric, ok := ParseIPv4Host(tt.host)
			if numeric != tt.wantNumeric || ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseIPv4Host(%q) = %v, %v, %v; want %v, %v, %v",
					tt.host, got, numeric, ok, tt.want, tt.wantNumeric, tt.wantOK)
			}
		})
	}
}

func TestParseIPv4Host_ShorthandClassification(t *testing.T) {
	tests := []struct {
		host string
		want AddressClass
	}{
		{"127.1", ClassLoopback},
		{"0x7f.1", ClassLoopback},
		{"10.1", ClassPrivate},
		{"192.168.1", ClassPrivate},
		{"169.254.1", ClassLinkLocal},
		{"169.254.43518", ClassCloudMetadata},
		{"8.8", ClassPublic},
	}
	for _, tt := range tests {
		if got := ClassifyHost(tt.host); got != tt.want {
			t.Errorf("ClassifyHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
	if !IsLocalhost("127.1") || !IsPrivateIP("10.1") || !IsCloudMetadataHost("169.254.43518") {
		t.Error("shorthand hosts must classify like their dotted-quad forms")
	}
}
