// Package classify labels senders and messages with the light heuristics
// used by triage and newsletter cleanup.
package classify

import (
	"sort"
	"strings"

	"github.com/nhle/mxctl/internal/mailaddr"
	"github.com/nhle/mxctl/internal/model"
)

// DefaultBulkThreshold is the message count at which a sender is treated as
// a bulk source.
const DefaultBulkThreshold = 3

// automatedMarkers are matched as substrings of the lower-cased address.
var automatedMarkers = []string{
	"noreply",
	"no-reply",
	"notifications",
	"mailer-daemon",
	"donotreply",
	"updates@",
	"news@",
	"info@",
	"support@",
	"billing@",
}

// AutomatedMarkers returns a copy of the marker list.
func AutomatedMarkers() []string {
	return append([]string(nil), automatedMarkers...)
}

// IsAutomatedSender reports whether an address looks machine-generated.
func IsAutomatedSender(address string) bool {
	lower := strings.ToLower(address)
	for _, marker := range automatedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Categorize files a single message: flagged first, then automated senders
// as notifications, everything else as a person.
func Categorize(msg model.Message) model.Category {
	if msg.Flagged {
		return model.CategoryFlagged
	}
	if IsAutomatedSender(mailaddr.ExtractEmail(msg.Sender)) {
		return model.CategoryNotification
	}
	return model.CategoryPerson
}

// Triage is a partition of messages into the three triage buckets. Every
// input message lands in exactly one bucket, in input order.
type Triage struct {
	Flagged       []model.Message `json:"flagged"`
	People        []model.Message `json:"people"`
	Notifications []model.Message `json:"notifications"`
}

// Total is the number of messages across all buckets.
func (t Triage) Total() int {
	return len(t.Flagged) + len(t.People) + len(t.Notifications)
}

// CategorizeForTriage partitions messages for the triage view.
func CategorizeForTriage(messages []model.Message) Triage {
	out := Triage{
		Flagged:       []model.Message{},
		People:        []model.Message{},
		Notifications: []model.Message{},
	}
	for _, msg := range messages {
		switch Categorize(msg) {
		case model.CategoryFlagged:
			out.Flagged = append(out.Flagged, msg)
		case model.CategoryNotification:
			out.Notifications = append(out.Notifications, msg)
		default:
			out.People = append(out.People, msg)
		}
	}
	return out
}

// CountSenders counts messages per extracted sender address, keeping the
// order in which senders were first seen.
func CountSenders(senders []string) []model.SenderCount {
	index := make(map[string]int, len(senders))
	var counts []model.SenderCount
	for _, raw := range senders {
		addr := mailaddr.ExtractEmail(strings.TrimSpace(raw))
		if addr == "" {
			continue
		}
		if i, ok := index[addr]; ok {
			counts[i].Count++
			continue
		}
		index[addr] = len(counts)
		counts = append(counts, model.SenderCount{Sender: addr, Count: 1})
	}
	return counts
}

// IdentifyBulkSenders keeps senders whose count is at least threshold,
// sorted by count descending with first-seen order breaking ties. A
// threshold below 1 uses DefaultBulkThreshold.
func IdentifyBulkSenders(counts []model.SenderCount, threshold int) []model.SenderCount {
	if threshold < 1 {
		threshold = DefaultBulkThreshold
	}
	bulk := make([]model.SenderCount, 0, len(counts))
	for _, c := range counts {
		if c.Count >= threshold {
			bulk = append(bulk, c)
		}
	}
	sort.SliceStable(bulk, func(i, j int) bool {
		return bulk[i].Count > bulk[j].Count
	})
	return bulk
}

// RankSenders sorts all counts by frequency (first-seen order on ties) and
// keeps the first limit entries. A limit below 1 keeps everything.
func RankSenders(counts []model.SenderCount, limit int) []model.SenderCount {
	ranked := append([]model.SenderCount(nil), counts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
