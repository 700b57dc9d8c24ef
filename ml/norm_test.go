package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossfold/data"
)

func TestChannelStats(t *testing.T) {
	shape := data.Shape{Channels: 2, Height: 1, Width: 2}
	samples := []data.Sample{
		{X: []float32{0, 2, 10, 10}, Shape: shape, Label: 1},
		{X: []float32{0, 2, 10, 10}, Shape: shape, Label: 2},
	}
	b, err := data.AssembleBatch(samples, shape)
	require.NoError(t, err)

	cs := computeChannelStats(b)
	assert.InDelta(t, 1.0, float64(cs.mean[0]), 1e-6)
	assert.InDelta(t, 1.0, float64(cs.std[0]), 1e-6)
	assert.InDelta(t, 10.0, float64(cs.mean[1]), 1e-6)
	assert.Greater(t, float64(cs.std[1]), 0.0, "constant channel keeps a positive std floor")

	dst := make([]float32, shape.Elems())
	cs.apply(b.Row(0), shape, dst)
	assert.InDelta(t, -1.0, float64(dst[0]), 1e-6)
	assert.InDelta(t, 1.0, float64(dst[1]), 1e-6)
	assert.InDelta(t, 0.0, float64(dst[2]), 1e-3)
	assert.InDelta(t, 0.0, float64(dst[3]), 1e-3)
}

func TestChannelStatsEmptyBatchIsIdentity(t *testing.T) {
	shape := data.Shape{Channels: 2, Height: 1, Width: 2}
	cs := computeChannelStats(data.Batch{Shape: shape})

	for ch := 0; ch < shape.Channels; ch++ {
		assert.Equal(t, float32(0), cs.mean[ch])
		assert.Equal(t, float32(1), cs.std[ch])
	}

	row := []float32{0.3, 0.7, 0.1, 0.9}
	dst := make([]float32, len(row))
	cs.apply(row, shape, dst)
	assert.Equal(t, row, dst, "identity statistics must pass samples through unchanged")
}
