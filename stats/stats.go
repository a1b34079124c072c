package stats

import (
	"encoding/json"
	"time"

	"github.com/getsentry/sentry-go"
)

// Stats counts what happened during one pipeline run.
type Stats struct {
	StartedAt time.Time

	FeedsRead    uint64
	FeedErrors   uint64
	ItemsSeen    uint64
	ItemsKnown   uint64
	ItemsNoLink  uint64
	ItemsDupes   uint64
	ItemsQueued  uint64
	ItemsBuilt   uint64
	ItemErrors   uint64
	ManifestSize int
}

func NewStats() *Stats {
	return &Stats{
		StartedAt: time.Now(),
	}
}

func (s *Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Duration string `json:"duration"`

		FeedsRead  uint64 `json:"feeds_read"`
		FeedErrors uint64 `json:"feed_errors"`

		ItemsSeen   uint64 `json:"items_seen"`
		ItemsKnown  uint64 `json:"items_known"`
		ItemsNoLink uint64 `json:"items_no_link"`
		ItemsDupes  uint64 `json:"items_duplicate"`
		ItemsQueued uint64 `json:"items_queued"`
		ItemsBuilt  uint64 `json:"items_built"`
		ItemErrors  uint64 `json:"item_errors"`

		ManifestSize int `json:"manifest_size"`
	}{
		Duration: time.Since(s.StartedAt).Round(time.Millisecond).String(),

		FeedsRead:  s.FeedsRead,
		FeedErrors: s.FeedErrors,

		ItemsSeen:   s.ItemsSeen,
		ItemsKnown:  s.ItemsKnown,
		ItemsNoLink: s.ItemsNoLink,
		ItemsDupes:  s.ItemsDupes,
		ItemsQueued: s.ItemsQueued,
		ItemsBuilt:  s.ItemsBuilt,
		ItemErrors:  s.ItemErrors,

		ManifestSize: s.ManifestSize,
	})
}

func (s *Stats) String() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		sentry.CaptureException(err)

		return "{\"error\": \"cannot serialize stats\"}"
	}

	return string(data)
}
