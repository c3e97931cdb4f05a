// Package orgid canonicalizes organisation identifiers and derives the short
// fingerprints used as lookup keys against the remote enrichment service.
package orgid

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// DefaultHashLength is the number of hex characters kept from a fingerprint.
const DefaultHashLength = 4

// suffixLen is the number of trailing characters split off by Normalize.
const suffixLen = 3

// Normalize uppercases an identifier, drops its first non-alphanumeric
// character and inserts a single space before the last three characters.
// Only the first offending character is removed: "AB-12 345" keeps its space.
func Normalize(value string) string {
	r := dropFirstNonAlnum([]rune(strings.ToUpper(value)), isUpperAlnum)
	cut := len(r) - suffixLen
	if cut < 0 {
		cut = 0
	}
	return string(r[:cut]) + " " + string(r[cut:])
}

// NormalizeAny applies Normalize to strings and returns any other value unchanged.
func NormalizeAny(value any) any {
	if s, ok := value.(string); ok {
		return Normalize(s)
	}
	return value
}

// Fingerprint lowercases an identifier, drops its first non-alphanumeric
// character and returns the first length hex characters of its MD5 digest.
// A length outside 1..32 falls back to DefaultHashLength or 32 respectively.
func Fingerprint(value string, length int) string {
	if length <= 0 {
		length = DefaultHashLength
	}
	r := dropFirstNonAlnum([]rune(strings.ToLower(value)), isLowerAlnum)
	sum := md5.Sum([]byte(string(r)))
	h := hex.EncodeToString(sum[:])
	if length > len(h) {
		length = len(h)
	}
	return h[:length]
}

// Fingerprints returns the distinct fingerprints of the non-empty values, in
// first-seen order. Empty values never reach the hash.
func Fingerprints(values []string, length int) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		fp := Fingerprint(v, length)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, fp)
	}
	return out
}

func dropFirstNonAlnum(r []rune, keep func(rune) bool) []rune {
	for i, c := range r {
		if !keep(c) {
			return append(r[:i:i], r[i+1:]...)
		}
	}
	return r
}

func isUpperAlnum(c rune) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isLowerAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
