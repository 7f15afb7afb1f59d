package activity

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultIgnoreTTL is how long a suppressed message id is remembered.
const DefaultIgnoreTTL = 10 * time.Second

const ignoreSetSize = 10_000

// IgnoreSet holds ids of messages the bot is about to delete itself (purges,
// word filters). Deletions of those messages are not recorded as activity.
// Entries expire after the configured TTL.
type IgnoreSet struct {
	entries *expirable.LRU[uint64, struct{}]
}

// NewIgnoreSet creates an IgnoreSet whose entries live for ttl.
func NewIgnoreSet(ttl time.Duration) *IgnoreSet {
	if ttl <= 0 {
		ttl = DefaultIgnoreTTL
	}
	return &IgnoreSet{
		entries: expirable.NewLRU[uint64, struct{}](ignoreSetSize, nil, ttl),
	}
}

// Add marks message ids as suppressed.
func (s *IgnoreSet) Add(messageIDs ...uint64) {
	for _, id := range messageIDs {
		s.entries.Add(id, struct{}{})
	}
}

// Take reports whether messageID is suppressed and forgets it.
func (s *IgnoreSet) Take(messageID uint64) bool {
	if _, ok := s.entries.Get(messageID); !ok {
		return false
	}
	s.entries.Remove(messageID)
	return true
}

// Len returns the number of live entries.
func (s *IgnoreSet) Len() int {
	return s.entries.Len()
}
