package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Errors surfaced while normalizing the training-option list. Both mean the
// run cannot start; nothing downstream sees a half-parsed option set.
var (
	ErrMissingOption = errors.New("missing required training option")
	ErrBadOption     = errors.New("invalid training option value")
)

// Option is one (key, value) entry of the training-option list. Unrecognized
// keys are ignored so callers can pass a superset meant for other tools.
type Option struct {
	Key   string
	Value interface{}
}

// TrainingOptions is the normalized form of the option list. Every field is
// required; normalization fails if any recognized key is absent.
type TrainingOptions struct {
	ValidPerc       float64 // hold-out fraction in [0, 1]
	InitLearnRate   float64
	LearnDropFactor float64
	MaxEpochs       int
	MiniBatchSize   int
	ValidPatience   int // consecutive non-improving validation evaluations
	ValidFrequency  int // training steps between validation evaluations
}

const (
	keyValidPerc       = "valid_perc"
	keyInitLearnRate   = "init_learn_rate"
	keyLearnDropFactor = "learn_drop_factor"
	keyMaxEpochs       = "max_epochs"
	keyMiniBatchSize   = "minibatch_size"
	keyValidPatience   = "valid_patience"
	keyValidFrequency  = "valid_frequency"
)

// ParseTrainingOptions normalizes an ordered option list. A later duplicate
// of a key wins. Missing required keys are reported up front rather than at
// first use, so a bad configuration never reaches fold iteration.
func ParseTrainingOptions(opts []Option) (TrainingOptions, error) {
	var out TrainingOptions
	seen := map[string]bool{}

	for _, o := range opts {
		switch o.Key {
		case keyValidPerc:
			v, err := cast.ToFloat64E(o.Value)
			if err != nil || v < 0 || v > 1 {
				return out, errors.Wrapf(ErrBadOption, "%s=%v (want fraction in [0,1])", o.Key, o.Value)
			}
			out.ValidPerc = v
		case keyInitLearnRate:
			v, err := cast.ToFloat64E(o.Value)
			if err != nil || v <= 0 {
				return out, errors.Wrapf(ErrBadOption, "%s=%v (want positive rate)", o.Key, o.Value)
			}
			out.InitLearnRate = v
		case keyLearnDropFactor:
			v, err := cast.ToFloat64E(o.Value)
			if err != nil || v <= 0 || v > 1 {
				return out, errors.Wrapf(ErrBadOption, "%s=%v (want factor in (0,1])", o.Key, o.Value)
			}
			out.LearnDropFactor = v
		case keyMaxEpochs:
			v, err := cast.ToIntE(o.Value)
			if err != nil || v <= 0 {
				return out, errors.Wrapf(ErrBadOption, "%s=%v (want positive count)", o.Key, o.Value)
			}
			out.MaxEpochs = v
		case keyMiniBatchSize:
			v, err := cast.ToIntE(o.Value)
			if err != nil || v <= 0 {
				return out, errors.Wrapf(ErrBadOption, "%s=%v (want positive count)", o.Key, o.Value)
			}
			out.MiniBatchSize = v
		case keyValidPatience:
			v, err := cast.ToIntE(o.Value)
			if err != nil || v <= 0 {
				return out, errors.Wrapf(ErrBadOption, "%s=%v (want positive count)", o.Key, o.Value)
			}
			out.ValidPatience = v
		case keyValidFrequency:
			v, err := cast.ToIntE(o.Value)
			if err != nil || v <= 0 {
				return out, errors.Wrapf(ErrBadOption, "%s=%v (want positive count)", o.Key, o.Value)
			}
			out.ValidFrequency = v
		default:
			continue // unknown keys are not ours to police
		}
		seen[o.Key] = true
	}

	required := []string{
		keyValidPerc, keyInitLearnRate, keyLearnDropFactor,
		keyMaxEpochs, keyMiniBatchSize, keyValidPatience, keyValidFrequency,
	}
	for _, k := range required {
		if !seen[k] {
			return out, errors.Wrap(ErrMissingOption, k)
		}
	}
	return out, nil
}
