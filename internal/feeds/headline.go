package feeds

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/maelcolin/fuseboard/internal/signal"
)

// maxHeadlines caps how many entries one feed contributes per poll, so a
// busy feed cannot drown out the rest of the buffer.
const maxHeadlines = 20

// negative and positive are the polarity lexicons scored against headline
// words. Headlines are weak evidence; fusion weights them accordingly.
var negative = wordSet(
	"loss", "losses", "decline", "declines", "drop", "drops", "fall", "falls",
	"plunge", "plunges", "slump", "slumps", "tumble", "tumbles", "crash",
	"deficit", "downgrade", "downgrades", "bankruptcy", "default", "defaults",
	"layoff", "layoffs", "recession", "inflation", "shortfall", "warning",
	"warns", "misses", "cut", "cuts", "weak", "fears", "risk", "risks",
)

var positive = wordSet(
	"growth", "profit", "profits", "gain", "gains", "rise", "rises", "surge",
	"surges", "rally", "rallies", "rebound", "rebounds", "upgrade", "upgrades",
	"beats", "record", "strong", "recovery", "expansion", "boost", "boosts",
	"soar", "soars", "jump", "jumps", "optimism",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// polarityScore counts positive minus negative lexicon hits in a headline.
func polarityScore(title string) int {
	score := 0
	for _, raw := range strings.Fields(strings.ToLower(title)) {
		word := strings.Trim(raw, `.,;:!?'"()[]-`)
		if _, ok := positive[word]; ok {
			score++
		}
		if _, ok := negative[word]; ok {
			score--
		}
	}
	return score
}

// HeadlineSignal scores one feed entry. The second return is false when
// the headline is empty or reads neutral - those entries produce no
// signal at all rather than a zero-value one.
//
// Value scales with polarity at 0.2 per lexicon hit, capped at ±0.8 so a
// single headline can never saturate a topic. Confidence starts low (0.35)
// and grows slightly with stronger wording, topping out at 0.5.
func HeadlineSignal(feed Feed, entry *gofeed.Item, now time.Time) (signal.Signal, bool) {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return signal.Signal{}, false
	}

	score := polarityScore(title)
	if score == 0 {
		return signal.Signal{}, false
	}

	value := clampValue(float64(score) * 0.2)
	magnitude := score
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude > 4 {
		magnitude = 4
	}
	confidence := 0.3 + 0.05*float64(magnitude)

	dir := signal.Negative
	if score > 0 {
		dir = signal.Positive
	}

	published := now
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC()
	} else if entry.UpdatedParsed != nil {
		published = entry.UpdatedParsed.UTC()
	}

	s := signal.NewAt(signal.SourceRealtime, feed.Topic, value, confidence, dir, published)
	s.Metadata = map[string]any{
		"headline": title,
		"feed":     feed.Name,
		"url":      entry.Link,
	}
	return s, true
}

func clampValue(v float64) float64 {
	if v > 0.8 {
		return 0.8
	}
	if v < -0.8 {
		return -0.8
	}
	return v
}

// signalsFromFeed converts a parsed feed into signals, newest entries
// first as the feed presents them.
func signalsFromFeed(feed Feed, parsed *gofeed.Feed, now time.Time) []signal.Signal {
	var out []signal.Signal
	for i, entry := range parsed.Items {
		if i >= maxHeadlines {
			break
		}
		s, ok := HeadlineSignal(feed, entry, now)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
