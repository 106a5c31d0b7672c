package classify

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mxctl/internal/fields"
	"github.com/nhle/mxctl/internal/model"
)

func TestIsAutomatedSender(t *testing.T) {
	for _, addr := range []string{
		"noreply@github.com",
		"No-Reply@Service.com",
		"notifications@slack.com",
		"MAILER-DAEMON@mx.example.com",
		"donotreply@bank.com",
		"updates@app.io",
		"news@paper.com",
		"info@shop.com",
		"support@vendor.com",
		"billing@saas.com",
	} {
		assert.True(t, IsAutomatedSender(addr), addr)
	}
	assert.False(t, IsAutomatedSender("john.doe@company.com"))
	assert.False(t, IsAutomatedSender("admin@company.com"))
}

func TestProperty_MarkerAlwaysAutomated(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	markers := AutomatedMarkers()

	properties.Property("any_marker_matches_case_insensitively", prop.ForAll(
		func(prefix, suffix string, pick int, upper bool) bool {
			marker := markers[pick]
			if upper {
				marker = strings.ToUpper(marker)
			}
			return IsAutomatedSender(prefix + marker + suffix)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, len(markers)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func msg(id, sender string, flagged bool) model.Message {
	return model.Message{Account: "iCloud", ID: fields.ParseID(id), Subject: "s" + id, Sender: sender, Flagged: flagged}
}

func TestCategorizeForTriage(t *testing.T) {
	got := CategorizeForTriage([]model.Message{
		msg("1", "boss@company.com", true),
		msg("2", "Alerts <noreply@github.com>", false),
		msg("3", "Jane <jane@example.com>", false),
	})
	require.Len(t, got.Flagged, 1)
	require.Len(t, got.Notifications, 1)
	require.Len(t, got.People, 1)
	assert.Equal(t, "1", got.Flagged[0].ID.String())
	assert.Equal(t, "2", got.Notifications[0].ID.String())
	assert.Equal(t, "3", got.People[0].ID.String())
	assert.Equal(t, 3, got.Total())
}

func TestCategorizeFlaggedWinsOverAutomated(t *testing.T) {
	assert.Equal(t, model.CategoryFlagged, Categorize(msg("1", "noreply@x.com", true)))
}

func TestCategorizeForTriageEmptyBucketsAreNotNil(t *testing.T) {
	got := CategorizeForTriage(nil)
	assert.NotNil(t, got.Flagged)
	assert.NotNil(t, got.People)
	assert.NotNil(t, got.Notifications)
}

func TestProperty_TriageIsPartition(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	senders := []string{"jane@example.com", "noreply@x.com", "Bob <bob@y.org>", "news@z.com"}

	properties.Property("every_message_in_exactly_one_bucket", prop.ForAll(
		func(picks []int, flags []bool) bool {
			var msgs []model.Message
			for i, p := range picks {
				flagged := i < len(flags) && flags[i]
				msgs = append(msgs, msg(string(rune('a'+i%26)), senders[p], flagged))
			}
			return CategorizeForTriage(msgs).Total() == len(msgs)
		},
		gen.SliceOf(gen.IntRange(0, len(senders)-1)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestIdentifyBulkSenders(t *testing.T) {
	counts := CountSenders([]string{
		"News <news@shop.com>",
		"alice@example.com",
		"news@shop.com",
		"news@shop.com",
		"News <news@shop.com>",
	})
	bulk := IdentifyBulkSenders(counts, 3)
	require.Len(t, bulk, 1)
	assert.Equal(t, model.SenderCount{Sender: "news@shop.com", Count: 4}, bulk[0])
}

func TestIdentifyBulkSendersTiesKeepFirstSeen(t *testing.T) {
	counts := []model.SenderCount{
		{Sender: "a@x.com", Count: 3},
		{Sender: "b@x.com", Count: 5},
		{Sender: "c@x.com", Count: 3},
		{Sender: "d@x.com", Count: 2},
	}
	bulk := IdentifyBulkSenders(counts, 0)
	require.Len(t, bulk, 3)
	assert.Equal(t, "b@x.com", bulk[0].Sender)
	assert.Equal(t, "a@x.com", bulk[1].Sender)
	assert.Equal(t, "c@x.com", bulk[2].Sender)
}

func TestRankSenders(t *testing.T) {
	counts := CountSenders([]string{"a@x.com", "b@x.com", "b@x.com", "c@x.com", "c@x.com", "c@x.com"})
	top := RankSenders(counts, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "c@x.com", top[0].Sender)
	assert.Equal(t, "b@x.com", top[1].Sender)
	assert.Len(t, RankSenders(counts, 0), 3)
}
