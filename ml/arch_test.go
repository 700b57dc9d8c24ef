package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossfold/data"
)

func TestBuildArchTopology(t *testing.T) {
	shape := data.Shape{Channels: 1, Height: 16, Width: 16}
	a := BuildArch(shape, 5, 12, 4)

	types := make([]StageType, len(a.Stages))
	for i, s := range a.Stages {
		types[i] = s.Type
	}
	assert.Equal(t, []StageType{Input, Normalize, Conv2D, ReLU, FullyConnected, Softmax, ClassLoss}, types)

	assert.Equal(t, shape, a.InputShape)
	assert.Equal(t, 4, a.NumClasses)

	conv := a.ConvStage()
	assert.Equal(t, 12, conv.Filters)
	assert.Equal(t, 5, conv.FilterSize)
	assert.True(t, conv.SamePad)

	require.NoError(t, a.Validate())
}

func TestArchValidate(t *testing.T) {
	shape := data.Shape{Channels: 1, Height: 16, Width: 16}

	assert.Error(t, BuildArch(shape, 4, 12, 4).Validate(), "even filter breaks same padding")
	assert.Error(t, BuildArch(shape, 5, 0, 4).Validate())
	assert.Error(t, BuildArch(shape, 5, 12, 1).Validate())
	assert.Error(t, BuildArch(data.Shape{}, 5, 12, 4).Validate())
}

func TestStageTypeString(t *testing.T) {
	assert.Equal(t, "Conv2D", Conv2D.String())
	assert.Equal(t, "ClassLoss", ClassLoss.String())
	assert.Equal(t, "Unknown", StageType(99).String())
}
