package orgid

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaced", "AB 123", "AB 123"},
		{"compact", "ab123", "AB 123"},
		{"postcode", "sw1a1aa", "SW1A 1AA"},
		{"hyphen", "SW1A-1AA", "SW1A 1AA"},
		{"only first separator removed", "GB-CHC-1234567", "GBCHC-1234 567"},
		{"short", "AB", " AB"},
		{"exactly three", "abc", " ABC"},
		{"empty", "", " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{"AB 123", "ab123", "SW1A 1AA", "sw1a-1aa", "12345678", "SC012345"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeAny(t *testing.T) {
	assert.Equal(t, "AB 123", NormalizeAny("ab123"))
	assert.Equal(t, 42, NormalizeAny(42))
	assert.Nil(t, NormalizeAny(nil))
}

func TestFingerprint(t *testing.T) {
	// md5("ab123") = 467953075fb15d5fcb13eb010e7cbe2b
	assert.Equal(t, "4679", Fingerprint("AB 123", 0))
	assert.Equal(t, "4679", Fingerprint("ab123", DefaultHashLength))
	assert.Equal(t, "467953", Fingerprint("AB 123", 6))
	// md5("sw1a1aa") = bb4a3f30...
	assert.Equal(t, "bb4a", Fingerprint("SW1A 1AA", 4))
}

func TestFingerprint_SingleStrip(t *testing.T) {
	// Only the first hyphen is dropped: md5("gbchc-1234567") = 7bd0100d...
	assert.Equal(t, "7bd0", Fingerprint("GB-CHC-1234567", 4))
	// md5("gbchc1234567") = 6049335a...
	assert.Equal(t, "6049", Fingerprint("GBCHC1234567", 4))
}

func TestFingerprint_LengthAndHex(t *testing.T) {
	hexOnly := regexp.MustCompile(`^[0-9a-f]+$`)
	for _, in := range []string{"AB 123", "x", "GB-CHC-1234567", "  ", "ünïcode 99"} {
		for _, n := range []int{1, 4, 8, 32} {
			fp := Fingerprint(in, n)
			assert.Len(t, fp, n)
			assert.Regexp(t, hexOnly, fp)
		}
	}
	assert.Len(t, Fingerprint("AB 123", 99), 32)
}

func TestFingerprint_Deterministic(t *testing.T) {
	assert.Equal(t, Fingerprint("SC012345", 4), Fingerprint("SC012345", 4))
}

func TestFingerprints(t *testing.T) {
	got := Fingerprints([]string{"AB 123", "", "ab123", "SW1A 1AA", "AB 123"}, 4)
	assert.Equal(t, []string{"4679", "bb4a"}, got)
}

func TestFingerprints_AllEmpty(t *testing.T) {
	assert.Empty(t, Fingerprints([]string{"", ""}, 4))
}
