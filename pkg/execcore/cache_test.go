package execcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestTask_EqualArgsProduceEqualDigest(t *testing.T) {
	t1 := TaskArgs{Args: []any{"a.go", 42}, Kwargs: map[string]any{"verbose": true}}
	t2 := TaskArgs{Args: []any{"a.go", 42}, Kwargs: map[string]any{"verbose": true}}

	d1, err := DigestTask(t1)
	require.NoError(t, err)

	d2, err := DigestTask(t2)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
}

func TestDigestTask_MultiKeyKwargsAreOrderStable(t *testing.T) {
	kwargs := map[string]any{"verbose": true, "depth": 3, "mode": "fast", "strict": false}

	var first Digest

	for i := range 20 {
		d, err := DigestTask(TaskArgs{Args: []any{"a.go"}, Kwargs: kwargs})
		require.NoError(t, err)

		if i == 0 {
			first = d

			continue
		}

		assert.Equal(t, first, d, "digest must not depend on map iteration order")
	}
}

func TestDigestTask_DifferentArgsProduceDifferentDigest(t *testing.T) {
	t1 := TaskArgs{Args: []any{"a.go"}}
	t2 := TaskArgs{Args: []any{"b.go"}}

	d1, err := DigestTask(t1)
	require.NoError(t, err)

	d2, err := DigestTask(t2)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestCache_GetMissThenPutThenHit(t *testing.T) {
	c := NewCache()

	digest, err := DigestTask(TaskArgs{Args: []any{"a.go"}})
	require.NoError(t, err)

	_, hit := c.Get("file_count", digest)
	assert.False(t, hit)

	c.Put("file_count", digest, []Result{"result-1"})

	results, hit := c.Get("file_count", digest)
	require.True(t, hit)
	assert.Equal(t, []Result{"result-1"}, results)
	assert.Equal(t, 1, c.Len("file_count"))
}

func TestCache_PutIsDefensivelyCopied(t *testing.T) {
	c := NewCache()

	digest, err := DigestTask(TaskArgs{Args: []any{"a.go"}})
	require.NoError(t, err)

	results := []Result{"original"}
	c.Put("file_count", digest, results)

	results[0] = "mutated"

	stored, _ := c.Get("file_count", digest)
	assert.Equal(t, []Result{"original"}, stored)
}

func TestCache_DifferentClassesAreIsolated(t *testing.T) {
	c := NewCache()

	digest, err := DigestTask(TaskArgs{Args: []any{"a.go"}})
	require.NoError(t, err)

	c.Put("file_count", digest, []Result{"fc"})

	_, hit := c.Get("token_histogram", digest)
	assert.False(t, hit)
}
