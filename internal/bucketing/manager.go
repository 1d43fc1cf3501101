package bucketing

import (
	"fmt"
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

// Bucketer hashes login subjects into anonymous buckets for rate-limit
// keys, so raw phone numbers never appear in the Redis keyspace.
type Bucketer struct {
	subjectBuckets int
	hasherPool     sync.Pool
}

func NewBucketer(subjectBuckets int) *Bucketer {
	if subjectBuckets <= 0 {
		subjectBuckets = 4096
	}

	b := &Bucketer{subjectBuckets: subjectBuckets}

	// Pool of hash functions to avoid allocation overhead per call.
	b.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return b
}

// SubjectBucket returns a consistent bucket for subject
// (0 to subjectBuckets-1).
func (b *Bucketer) SubjectBucket(subject string) int {
	return int(b.hashOf(subject) % uint64(b.subjectBuckets))
}

// TimeBucket returns the start of the current fixed window in unix
// seconds. Attempts within a window share a counter key.
func (b *Bucketer) TimeBucket(window time.Duration) int64 {
	w := int64(window.Seconds())
	if w <= 0 {
		w = 1
	}
	return time.Now().Unix() / w * w
}

// RateLimitKey combines subject and time buckets into one counter key.
func (b *Bucketer) RateLimitKey(subject string, window time.Duration) string {
	return fmt.Sprintf("%d:%d", b.SubjectBucket(subject), b.TimeBucket(window))
}

func (b *Bucketer) hashOf(key string) uint64 {
	hasher := b.hasherPool.Get().(hash.Hash64)
	defer b.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
