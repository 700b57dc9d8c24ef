package ml

import (
	"github.com/pkg/errors"

	"crossfold/data"
)

// StageType enumerates the computational stages of the classifier. The
// topology is fixed; only geometry and class count vary between runs.
type StageType int

const (
	Input StageType = iota
	Normalize
	Conv2D
	ReLU
	FullyConnected
	Softmax
	ClassLoss
)

func (st StageType) String() string {
	switch st {
	case Input:
		return "Input"
	case Normalize:
		return "Normalize"
	case Conv2D:
		return "Conv2D"
	case ReLU:
		return "ReLU"
	case FullyConnected:
		return "FullyConnected"
	case Softmax:
		return "Softmax"
	case ClassLoss:
		return "ClassLoss"
	default:
		return "Unknown"
	}
}

// Stage is configuration only; engines interpret it, nothing here executes.
type Stage struct {
	Type       StageType
	Shape      data.Shape // Input
	Filters    int        // Conv2D
	FilterSize int        // Conv2D
	SamePad    bool       // Conv2D
	Units      int        // FullyConnected
}

// Arch is the ordered stage sequence plus the two quantities engines need
// constantly enough to warrant direct fields.
type Arch struct {
	Stages     []Stage
	InputShape data.Shape
	NumClasses int
}

// BuildArch returns the fixed topology: input, per-channel normalization,
// one shape-preserving convolution, ReLU, a projection to the class count,
// softmax, and the classification loss.
func BuildArch(input data.Shape, filterSize, numFilters, numClasses int) Arch {
	return Arch{
		Stages: []Stage{
			{Type: Input, Shape: input},
			{Type: Normalize},
			{Type: Conv2D, Filters: numFilters, FilterSize: filterSize, SamePad: true},
			{Type: ReLU},
			{Type: FullyConnected, Units: numClasses},
			{Type: Softmax},
			{Type: ClassLoss},
		},
		InputShape: input,
		NumClasses: numClasses,
	}
}

// Validate rejects geometry an engine could not realize.
func (a Arch) Validate() error {
	if a.InputShape.Elems() <= 0 {
		return errors.Errorf("arch: degenerate input shape %s", a.InputShape)
	}
	if a.NumClasses < 2 {
		return errors.Errorf("arch: need at least 2 classes (got %d)", a.NumClasses)
	}
	conv := a.conv()
	if conv == nil {
		return errors.New("arch: missing Conv2D stage")
	}
	if conv.FilterSize <= 0 || conv.FilterSize%2 == 0 {
		return errors.Errorf("arch: same-padding needs an odd filter size (got %d)", conv.FilterSize)
	}
	if conv.Filters <= 0 {
		return errors.Errorf("arch: need at least one filter (got %d)", conv.Filters)
	}
	return nil
}

func (a Arch) conv() *Stage {
	for i := range a.Stages {
		if a.Stages[i].Type == Conv2D {
			return &a.Stages[i]
		}
	}
	return nil
}

// ConvStage returns the convolution geometry; Validate must have passed.
func (a Arch) ConvStage() Stage {
	return *a.conv()
}
