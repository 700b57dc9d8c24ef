package ml

import (
	"github.com/pkg/errors"

	"crossfold/data"
)

// FixedEngine predicts one constant class for every sample. It lets the
// harness's control flow be exercised without any learner attached.
type FixedEngine struct {
	Class int

	// FitCalls counts Fit invocations; handy when asserting that a run
	// failed before any training happened.
	FitCalls int
}

type fixedModel struct {
	class int
}

func (e *FixedEngine) Build(arch Arch) (ModelSpec, error) {
	if err := arch.Validate(); err != nil {
		return ModelSpec{}, err
	}
	return ModelSpec{Arch: arch}, nil
}

func (e *FixedEngine) Fit(spec ModelSpec, train, valid data.Batch, opts FitOptions) (Model, error) {
	e.FitCalls++
	if e.Class < 1 || e.Class > spec.Arch.NumClasses {
		return nil, errors.Wrapf(ErrTraining, "fixed class %d outside [1,%d]", e.Class, spec.Arch.NumClasses)
	}
	return &fixedModel{class: e.Class}, nil
}

func (e *FixedEngine) Predict(m Model, x data.Batch) ([]int, error) {
	fm, ok := m.(*fixedModel)
	if !ok {
		return nil, errors.Wrap(ErrTraining, "model was not produced by the fixed engine")
	}
	out := make([]int, x.Len())
	for i := range out {
		out[i] = fm.class
	}
	return out, nil
}
