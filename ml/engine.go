package ml

import (
	"github.com/pkg/errors"

	"crossfold/data"
)

// ErrTraining wraps any failure raised by a learning engine. Engine failures
// are never retried; the harness treats them as fatal.
var ErrTraining = errors.New("training failed")

// Model is the opaque trained-model handle. Each engine type-asserts its own
// concrete model inside Predict; nothing outside an engine inspects one.
type Model interface{}

// FitOptions is the normalized training configuration handed to Fit. The
// optimizer (Adam) and compute device (CPU) are fixed choices and therefore
// not options.
type FitOptions struct {
	InitLearnRate   float64
	LearnDropFactor float64
	LearnDropPeriod int // epochs between piecewise LR drops
	MaxEpochs       int
	MiniBatchSize   int
	ValidPatience   int // consecutive non-improving validation evaluations
	ValidFrequency  int // training steps between validation evaluations
	GradClipNorm    float64
	Seed            int64 // drives per-epoch reshuffling only
}

// Engine is the external learning collaborator: build a model specification
// from an architecture, fit it on train/validation batches, and predict
// labels for a test batch. Labels cross this boundary 1-based, matching the
// dataset's class space.
type Engine interface {
	Build(arch Arch) (ModelSpec, error)
	Fit(spec ModelSpec, train, valid data.Batch, opts FitOptions) (Model, error)
	Predict(m Model, x data.Batch) ([]int, error)
}

// ModelSpec is the compiled, still-untrained model description an engine
// returns from Build and consumes in Fit.
type ModelSpec struct {
	Arch Arch
}
