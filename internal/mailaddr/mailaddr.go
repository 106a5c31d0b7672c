// Package mailaddr normalizes sender strings and subjects as Mail.app
// reports them.
package mailaddr

import (
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"
)

// maxSubjectPasses bounds the prefix-stripping loop.
const maxSubjectPasses = 10

var (
	// subjectPrefixRe matches the whole leading run of prefixes. Its space
	// class is the one strings.TrimSpace uses.
	subjectPrefixRe = regexp.MustCompile(`(?i)^[\s\v\x{85}\p{Z}]*(?:(?:re|fwd|fw|aw|sv|vs):[\s\v\x{85}\p{Z}]*)+`)
	bracketAddrRe   = regexp.MustCompile(`<([^<>\s]+@[^<>\s]+)>`)
)

// ExtractEmail returns the bare address from "Display Name <addr>" or a bare
// address. When nothing address-like is found the input comes back
// unchanged, so callers that need a real address must check LooksLikeEmail.
func ExtractEmail(sender string) string {
	trimmed := strings.TrimSpace(sender)
	if trimmed == "" {
		return sender
	}
	if addr, err := mail.ParseAddress(trimmed); err == nil && addr.Address != "" {
		return addr.Address
	}
	if m := bracketAddrRe.FindStringSubmatch(trimmed); len(m) == 2 {
		return m[1]
	}
	return sender
}

// ExtractDisplayName returns the name part of "Name <addr>", stripped of
// whitespace and one layer of double quotes. A bracketed address with no
// name yields "". Input without a bracket is returned trimmed.
func ExtractDisplayName(sender string) string {
	before, _, found := strings.Cut(sender, "<")
	if !found {
		return strings.TrimSpace(sender)
	}
	name := strings.TrimSpace(before)
	name = strings.TrimPrefix(name, `"`)
	name = strings.TrimSuffix(name, `"`)
	return name
}

// SenderLabel is the display name when present, else the address.
func SenderLabel(sender string) string {
	if name := ExtractDisplayName(sender); name != "" && strings.Contains(sender, "<") {
		return name
	}
	return ExtractEmail(sender)
}

// NormalizeSubject strips nested reply/forward prefixes (Re, Fwd, Fw and the
// German, Scandinavian and Finnish AW, SV, VS) until nothing changes. Each
// pass removes a whole run of prefixes, so the result is a fixed point.
func NormalizeSubject(subject string) string {
	for i := 0; i < maxSubjectPasses; i++ {
		next := strings.TrimSpace(subjectPrefixRe.ReplaceAllString(subject, ""))
		if next == subject {
			break
		}
		subject = next
	}
	return subject
}

// LooksLikeEmail reports whether s is a plausible bare address.
func LooksLikeEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return !strings.ContainsAny(s, " <>\t")
}

// DomainOf returns the lower-cased domain of a sender, or "" when the
// sender carries no address.
func DomainOf(sender string) string {
	addr := strings.ToLower(strings.TrimSpace(ExtractEmail(sender)))
	at := strings.LastIndex(addr, "@")
	if at == -1 {
		return ""
	}
	return strings.Trim(addr[at+1:], ". >")
}
