package config

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullOptions() []Option {
	return []Option{
		{"valid_perc", 0.2},
		{"init_learn_rate", 0.01},
		{"learn_drop_factor", 0.5},
		{"max_epochs", 30},
		{"minibatch_size", 32},
		{"valid_patience", 5},
		{"valid_frequency", 10},
	}
}

func TestParseTrainingOptions(t *testing.T) {
	got, err := ParseTrainingOptions(fullOptions())
	require.NoError(t, err)

	assert.Equal(t, 0.2, got.ValidPerc)
	assert.Equal(t, 0.01, got.InitLearnRate)
	assert.Equal(t, 0.5, got.LearnDropFactor)
	assert.Equal(t, 30, got.MaxEpochs)
	assert.Equal(t, 32, got.MiniBatchSize)
	assert.Equal(t, 5, got.ValidPatience)
	assert.Equal(t, 10, got.ValidFrequency)
}

func TestParseTrainingOptionsIgnoresUnknownKeys(t *testing.T) {
	opts := append(fullOptions(), Option{"execution_environment", "gpu"}, Option{"plots", "none"})
	_, err := ParseTrainingOptions(opts)
	assert.NoError(t, err)
}

func TestParseTrainingOptionsLastDuplicateWins(t *testing.T) {
	opts := append(fullOptions(), Option{"max_epochs", 3})
	got, err := ParseTrainingOptions(opts)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MaxEpochs)
}

func TestParseTrainingOptionsMissingKey(t *testing.T) {
	var opts []Option
	for _, o := range fullOptions() {
		if o.Key != "minibatch_size" {
			opts = append(opts, o)
		}
	}
	_, err := ParseTrainingOptions(opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingOption))
	assert.Contains(t, err.Error(), "minibatch_size")
}

func TestParseTrainingOptionsBadValues(t *testing.T) {
	cases := []Option{
		{"valid_perc", 1.5},
		{"valid_perc", "not a number"},
		{"init_learn_rate", -0.1},
		{"learn_drop_factor", 0.0},
		{"max_epochs", 0},
		{"minibatch_size", -8},
		{"valid_patience", 0},
		{"valid_frequency", 0},
	}
	for _, bad := range cases {
		opts := append(fullOptions(), bad)
		_, err := ParseTrainingOptions(opts)
		require.Errorf(t, err, "option %s=%v should be rejected", bad.Key, bad.Value)
		assert.True(t, errors.Is(err, ErrBadOption), "option %s=%v", bad.Key, bad.Value)
	}
}

func TestValidateGenerator(t *testing.T) {
	assert.NoError(t, ValidateGenerator(GeneratorSplitmix))
	assert.NoError(t, ValidateGenerator(GeneratorShared))
	assert.Error(t, ValidateGenerator("mersenne"))
	assert.Error(t, ValidateGenerator(""))
}
