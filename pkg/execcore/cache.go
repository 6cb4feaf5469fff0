package execcore

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"
)

// Task arguments travel through DigestTask as []any/map[string]any, so gob
// needs every concrete type that can appear in them registered up front —
// encoding an unregistered concrete type behind an interface value fails,
// even for these predeclared kinds. Callers passing their own struct types
// in TaskArgs must gob.Register them too.
func init() {
	for _, v := range []any{
		"", 0, int32(0), int64(0), uint(0), uint64(0), float32(0), float64(0), false, []byte(nil),
	} {
		gob.Register(v)
	}
}

// Digest is the cache key: a fixed-length cryptographic hash of the
// canonical byte encoding of one task's arguments.
type Digest [sha256.Size]byte

// kwargPair is one Kwargs entry, used to canonicalize map iteration order
// before hashing.
type kwargPair struct {
	Key   string
	Value any
}

// sortedKwargs flattens Kwargs into a slice ordered by key. gob encodes a
// map by ranging it in Go's randomized iteration order, so two equal maps
// with two or more keys can serialize to different byte sequences; encoding
// this sorted slice instead gives every invocation the same byte layout.
func sortedKwargs(kwargs map[string]any) []kwargPair {
	pairs := make([]kwargPair, 0, len(kwargs))

	for k, v := range kwargs {
		pairs = append(pairs, kwargPair{Key: k, Value: v})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })

	return pairs
}

// DigestTask computes the stable digest of a task's arguments. Two
// invocations with equal Args and Kwargs produce an equal digest; differing
// arguments must produce different digests (barring a hash collision).
//
// encoding/gob is used rather than a third-party struct-hashing library:
// none of the example repos in this codebase's lineage carry one, and gob's
// deterministic field encoding for a closed set of registered types is the
// standard stdlib substitute for canonical struct hashing. gob's ordering
// guarantee only covers struct fields, not map keys, so Kwargs is encoded
// through sortedKwargs rather than as a raw map.
func DigestTask(task TaskArgs) (Digest, error) {
	var buf bytes.Buffer

	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(task.Args); err != nil {
		return Digest{}, fmt.Errorf("execcore: encode task args: %w", err)
	}

	if err := enc.Encode(sortedKwargs(task.Kwargs)); err != nil {
		return Digest{}, fmt.Errorf("execcore: encode task kwargs: %w", err)
	}

	return sha256.Sum256(buf.Bytes()), nil
}

// Cache is C5's two-level mapping: analyzer class to argument digest to the
// materialized result list that digest produced. It is in-memory only,
// additive (never pruned by the core), and its lifetime belongs to the
// caller, not to a single Run.
type Cache struct {
	mu   sync.RWMutex
	data map[AnalyzerClass]map[Digest][]Result
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{data: make(map[AnalyzerClass]map[Digest][]Result)}
}

// Get looks up a materialized result list by class and digest.
func (c *Cache) Get(class AnalyzerClass, digest Digest) ([]Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bucket, ok := c.data[class]
	if !ok {
		return nil, false
	}

	results, ok := bucket[digest]

	return results, ok
}

// Put stores a materialized result list under class and digest. It never
// evicts existing entries — unrelated entries under the same class are
// always preserved.
func (c *Cache) Put(class AnalyzerClass, digest Digest, results []Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket, ok := c.data[class]
	if !ok {
		bucket = make(map[Digest][]Result)
		c.data[class] = bucket
	}

	stored := make([]Result, len(results))
	copy(stored, results)

	bucket[digest] = stored
}

// Len returns the number of entries stored under class, for tests that
// assert cache growth.
func (c *Cache) Len(class AnalyzerClass) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data[class])
}
