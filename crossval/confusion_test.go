package crossval

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossfold/data"
)

func TestConfusionMatrixShape(t *testing.T) {
	cm := NewConfusionMatrix(3)
	require.Len(t, cm.Counts, 3)
	for _, row := range cm.Counts {
		assert.Len(t, row, 3)
	}
	assert.Equal(t, 0, cm.Total)
}

func TestConfusionMatrixUpdate(t *testing.T) {
	cm := NewConfusionMatrix(3)
	require.NoError(t, cm.Update(1, 1))
	require.NoError(t, cm.Update(1, 2))
	require.NoError(t, cm.Update(3, 1))
	require.NoError(t, cm.Update(3, 1))

	assert.Equal(t, 1, cm.Counts[0][0])
	assert.Equal(t, 1, cm.Counts[0][1])
	assert.Equal(t, 2, cm.Counts[2][0])
	assert.Equal(t, 4, cm.Total)

	sum := 0
	for _, row := range cm.Counts {
		for _, c := range row {
			sum += c
		}
	}
	assert.Equal(t, cm.Total, sum)
}

func TestConfusionMatrixRejectsOutOfRangeLabels(t *testing.T) {
	cm := NewConfusionMatrix(3)

	err := cm.Update(0, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrLabelSpace))

	err = cm.Update(1, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrLabelSpace))

	assert.Equal(t, 0, cm.Total, "failed updates must not count")
}

func TestConfusionMatrixAdd(t *testing.T) {
	a := NewConfusionMatrix(2)
	require.NoError(t, a.Update(1, 1))
	require.NoError(t, a.Update(2, 1))

	b := NewConfusionMatrix(2)
	require.NoError(t, b.Update(1, 2))
	require.NoError(t, b.Update(2, 2))
	require.NoError(t, b.Update(2, 2))

	require.NoError(t, a.Add(b))
	assert.Equal(t, [][]int{{1, 1}, {1, 2}}, a.Counts)
	assert.Equal(t, 5, a.Total)
}

func TestConfusionMatrixAddSizeMismatch(t *testing.T) {
	a := NewConfusionMatrix(2)
	b := NewConfusionMatrix(3)
	assert.Error(t, a.Add(b))
}

func TestConfusionMatrixAccuracy(t *testing.T) {
	cm := NewConfusionMatrix(2)
	assert.Equal(t, 0.0, cm.Accuracy())

	require.NoError(t, cm.Update(1, 1))
	require.NoError(t, cm.Update(2, 2))
	require.NoError(t, cm.Update(2, 1))
	require.NoError(t, cm.Update(1, 1))
	assert.InDelta(t, 0.75, cm.Accuracy(), 1e-12)
}
