package dedupekeys

import (
	"net/url"
	"strings"
	"unicode"
)

// legalSuffixes are trailing company-name words that never distinguish two companies
var legalSuffixes = map[string]struct{}{
	"inc": {}, "incorporated": {}, "llc": {}, "llp": {}, "lp": {}, "ltd": {}, "limited": {},
	"corp": {}, "corporation": {}, "co": {}, "company": {}, "gmbh": {}, "ag": {}, "sa": {},
	"sarl": {}, "bv": {}, "nv": {}, "plc": {}, "pty": {}, "pte": {}, "srl": {}, "spa": {},
	"oy": {}, "ab": {}, "as": {}, "kk": {},
}

// Host returns the bare lowercased host of a website: no scheme, no www.,
// no port, no path. Unparseable input yields "".
func Host(website string) string {
	s := strings.ToLower(strings.TrimSpace(website))
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") {
		return ""
	}
	return host
}

// Words lowercases s and splits it on whitespace and word separators.
// Every other punctuation rune is dropped, so "A.C.M.E." is one word.
func Words(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '/', r == '_', r == '&', r == '+':
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// ScrubName normalizes a company name: punctuation removed, trailing legal
// suffixes dropped, whitespace collapsed to single spaces.
func ScrubName(name string) string {
	words := Words(name)
	for len(words) > 1 {
		if _, ok := legalSuffixes[words[len(words)-1]]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// Alphanumeric keeps only lowercased letters and digits
func Alphanumeric(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SplitEmail returns the local part and domain of a normalized email.
// Both are empty unless the address has exactly one non-empty side of '@'.
func SplitEmail(email string) (local, domain string) {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "", ""
	}
	return local, domain
}
