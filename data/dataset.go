package data

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrShapeMismatch = errors.New("sample shape mismatch")
	ErrFoldMismatch  = errors.New("train/test fold sets differ")
	ErrLabelSpace    = errors.New("label outside class space")
	ErrEmptyDataset  = errors.New("dataset has no folds")
)

// Shape is the per-sample array geometry. All samples of a run share one
// shape; it is the input shape the architecture declares.
type Shape struct {
	Channels int
	Height   int
	Width    int
}

func (s Shape) Elems() int {
	return s.Channels * s.Height * s.Width
}

func (s Shape) Equal(o Shape) bool {
	return s == o
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Channels, s.Height, s.Width)
}

// Sample is one multichannel 2-D tile with its class label. X is
// channel-major (C*H*W float32 values) and never mutated after load.
type Sample struct {
	X     []float32
	Shape Shape
	Label int
}

// Dataset maps fold names to ordered sample lists. FoldNames fixes the
// iteration order; it is the same order used for partition indices and
// result keys.
type Dataset struct {
	FoldNames []string
	Folds     map[string][]Sample
}

func NewDataset() *Dataset {
	return &Dataset{Folds: map[string][]Sample{}}
}

// Add appends samples to a fold, registering the fold on first use.
func (d *Dataset) Add(fold string, samples ...Sample) {
	if _, ok := d.Folds[fold]; !ok {
		d.FoldNames = append(d.FoldNames, fold)
		d.Folds[fold] = nil
	}
	d.Folds[fold] = append(d.Folds[fold], samples...)
}

func (d *Dataset) Samples(fold string) []Sample {
	return d.Folds[fold]
}

// CheckFoldAlignment verifies the train and test datasets name the same
// folds in the same stable order.
func CheckFoldAlignment(train, test *Dataset) error {
	if len(train.FoldNames) == 0 {
		return ErrEmptyDataset
	}
	if len(train.FoldNames) != len(test.FoldNames) {
		return errors.Wrapf(ErrFoldMismatch, "train has %d folds, test has %d",
			len(train.FoldNames), len(test.FoldNames))
	}
	for i, name := range train.FoldNames {
		if test.FoldNames[i] != name {
			return errors.Wrapf(ErrFoldMismatch, "position %d: train %q vs test %q",
				i, name, test.FoldNames[i])
		}
	}
	return nil
}

// InferShape returns the shape of the first sample of the first fold. Every
// other sample is checked against it during batch assembly.
func InferShape(train *Dataset) (Shape, error) {
	if len(train.FoldNames) == 0 {
		return Shape{}, ErrEmptyDataset
	}
	first := train.Samples(train.FoldNames[0])
	if len(first) == 0 {
		return Shape{}, errors.Errorf("fold %q has no training samples", train.FoldNames[0])
	}
	return first[0].Shape, nil
}

// InferNumClasses derives the class count from the union of labels in the
// first fold's combined train and test samples.
func InferNumClasses(train, test *Dataset) (int, error) {
	if len(train.FoldNames) == 0 {
		return 0, ErrEmptyDataset
	}
	name := train.FoldNames[0]
	max := 0
	for _, s := range append(append([]Sample{}, train.Samples(name)...), test.Samples(name)...) {
		if s.Label < 1 {
			return 0, errors.Wrapf(ErrLabelSpace, "fold %q: label %d < 1", name, s.Label)
		}
		if s.Label > max {
			max = s.Label
		}
	}
	if max == 0 {
		return 0, errors.Errorf("fold %q has no labeled samples", name)
	}
	return max, nil
}

// CheckLabelSpace verifies every label of every fold lies in
// [1, numClasses]. Running this once up front turns a cross-fold label-space
// mismatch into an immediate failure instead of a mid-run one.
func CheckLabelSpace(train, test *Dataset, numClasses int) error {
	for _, d := range []*Dataset{train, test} {
		for _, name := range d.FoldNames {
			for i, s := range d.Samples(name) {
				if s.Label < 1 || s.Label > numClasses {
					return errors.Wrapf(ErrLabelSpace,
						"fold %q sample %d: label %d not in [1,%d]", name, i, s.Label, numClasses)
				}
			}
		}
	}
	return nil
}
