package data

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tile(shape Shape, label int, fill float32) Sample {
	x := make([]float32, shape.Elems())
	for i := range x {
		x[i] = fill
	}
	return Sample{X: x, Shape: shape, Label: label}
}

func TestAssembleBatchStacksInOrder(t *testing.T) {
	shape := Shape{Channels: 1, Height: 2, Width: 2}
	samples := []Sample{
		tile(shape, 1, 0.1),
		tile(shape, 2, 0.2),
		tile(shape, 3, 0.3),
	}
	b, err := AssembleBatch(samples, shape)
	require.NoError(t, err)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []int{1, 2, 3}, b.Labels)
	assert.Equal(t, []int{3, 1, 2, 2}, []int(b.X.Shape()))
	assert.Equal(t, []float32{0.2, 0.2, 0.2, 0.2}, b.Row(1))
}

func TestAssembleBatchEmpty(t *testing.T) {
	shape := Shape{Channels: 1, Height: 2, Width: 2}
	b, err := AssembleBatch(nil, shape)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
	assert.Nil(t, b.X)
}

func TestAssembleBatchShapeMismatch(t *testing.T) {
	shape := Shape{Channels: 1, Height: 2, Width: 2}
	other := Shape{Channels: 1, Height: 2, Width: 3}
	samples := []Sample{
		tile(shape, 1, 0.1),
		tile(other, 2, 0.2),
	}
	_, err := AssembleBatch(samples, shape)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestSubsetComplement(t *testing.T) {
	shape := Shape{Channels: 1, Height: 1, Width: 2}
	samples := []Sample{
		tile(shape, 1, 1),
		tile(shape, 2, 2),
		tile(shape, 3, 3),
		tile(shape, 4, 4),
	}
	b, err := AssembleBatch(samples, shape)
	require.NoError(t, err)

	mask := []bool{false, true, false, true}
	train, err := b.Subset(mask, false)
	require.NoError(t, err)
	valid, err := b.Subset(mask, true)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, train.Labels)
	assert.Equal(t, []int{2, 4}, valid.Labels)
	assert.Equal(t, b.Len(), train.Len()+valid.Len())
	assert.Equal(t, []float32{2, 2}, valid.Row(0))
}

func TestSubsetEmptySelection(t *testing.T) {
	shape := Shape{Channels: 1, Height: 1, Width: 1}
	b, err := AssembleBatch([]Sample{tile(shape, 1, 1)}, shape)
	require.NoError(t, err)

	valid, err := b.Subset([]bool{false}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, valid.Len())
	assert.Nil(t, valid.X)
}

func TestSubsetMaskLengthMismatch(t *testing.T) {
	shape := Shape{Channels: 1, Height: 1, Width: 1}
	b, err := AssembleBatch([]Sample{tile(shape, 1, 1)}, shape)
	require.NoError(t, err)

	_, err = b.Subset([]bool{true, false}, true)
	assert.Error(t, err)
}
