package records

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/emersion/go-message/textproto"
)

var authResultRe = regexp.MustCompile(`(?i)\b(spf|dkim|dmarc)=([a-z]+)`)

// HeaderSummary is the digest of a message's raw headers shown by the
// headers command.
type HeaderSummary struct {
	From            string            `json:"from"`
	To              string            `json:"to"`
	Subject         string            `json:"subject"`
	Date            string            `json:"date"`
	MessageID       string            `json:"message_id"`
	ReplyTo         string            `json:"reply_to,omitempty"`
	ReturnPath      string            `json:"return_path,omitempty"`
	ListUnsubscribe string            `json:"list_unsubscribe,omitempty"`
	OneClick        bool              `json:"one_click_unsubscribe,omitempty"`
	Auth            map[string]string `json:"auth"`
	Hops            int               `json:"hops"`
}

// ParseHeaders reads an RFC 5322 header block as returned by Mail.app's
// "all headers" property.
func ParseHeaders(raw string) (textproto.Header, error) {
	block := wellFormedLines(strings.ReplaceAll(strings.TrimSpace(raw), "\r\n", "\n"))
	if block == "" {
		return textproto.Header{}, nil
	}
	h, err := textproto.ReadHeader(bufio.NewReader(strings.NewReader(block + "\n\n")))
	if err != nil {
		return textproto.Header{}, fmt.Errorf("parsing headers: %w", err)
	}
	return h, nil
}

// wellFormedLines drops lines that are neither "Key: value" nor a
// continuation of a kept field. Blank lines are dropped too so a stray one
// cannot end the block early.
func wellFormedLines(block string) string {
	var kept []string
	keeping := false
	for _, line := range strings.Split(block, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			keeping = false
		case line[0] == ' ' || line[0] == '\t':
			if keeping {
				kept = append(kept, line)
			}
		default:
			key, _, found := strings.Cut(line, ":")
			keeping = found && validFieldName(key)
			if keeping {
				kept = append(kept, line)
			}
		}
	}
	return strings.Join(kept, "\n")
}

// validFieldName reports whether key is an RFC 5322 field name: printable
// ASCII without spaces or colons.
func validFieldName(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if c := key[i]; c < 33 || c > 126 {
			return false
		}
	}
	return true
}

// SummarizeHeaders extracts routing and authentication details from raw
// headers. Auth maps spf, dkim and dmarc to upper-cased results; hops counts
// Received headers.
func SummarizeHeaders(raw string) (HeaderSummary, error) {
	h, err := ParseHeaders(raw)
	if err != nil {
		return HeaderSummary{}, err
	}
	sum := HeaderSummary{
		From:            h.Get("From"),
		To:              h.Get("To"),
		Subject:         h.Get("Subject"),
		Date:            h.Get("Date"),
		MessageID:       h.Get("Message-Id"),
		ReplyTo:         h.Get("Reply-To"),
		ReturnPath:      h.Get("Return-Path"),
		ListUnsubscribe: h.Get("List-Unsubscribe"),
		OneClick:        strings.Contains(strings.ToLower(h.Get("List-Unsubscribe-Post")), "one-click"),
		Auth:            map[string]string{},
		Hops:            len(h.Values("Received")),
	}
	for _, value := range h.Values("Authentication-Results") {
		for _, m := range authResultRe.FindAllStringSubmatch(value, -1) {
			key := strings.ToLower(m[1])
			if _, seen := sum.Auth[key]; !seen {
				sum.Auth[key] = strings.ToUpper(m[2])
			}
		}
	}
	return sum, nil
}

var unsubscribeURLRe = regexp.MustCompile(`<([^<>]+)>`)

// UnsubscribeTargets splits a List-Unsubscribe value into its HTTP(S) and
// mailto targets.
func UnsubscribeTargets(value string) (httpURL, mailto string) {
	for _, m := range unsubscribeURLRe.FindAllStringSubmatch(value, -1) {
		target := strings.TrimSpace(m[1])
		lower := strings.ToLower(target)
		switch {
		case httpURL == "" && (strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")):
			httpURL = target
		case mailto == "" && strings.HasPrefix(lower, "mailto:"):
			mailto = target
		}
	}
	return httpURL, mailto
}
