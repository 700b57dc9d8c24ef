package data

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Batch is a fold's samples stacked along a new leading batch axis, with the
// label vector kept parallel to the rows. An empty batch has a nil tensor.
type Batch struct {
	X      *tensor.Dense // shape [N, C, H, W]
	Labels []int
	Shape  Shape
}

func (b Batch) Len() int {
	return len(b.Labels)
}

// Row returns the i-th sample's backing slice without copying.
func (b Batch) Row(i int) []float32 {
	stride := b.Shape.Elems()
	return b.X.Data().([]float32)[i*stride : (i+1)*stride]
}

// AssembleBatch stacks an ordered sample collection into one dense tensor.
// Every sample must match the declared input shape; a mismatch is fatal and
// is reported before any learning-engine call can happen.
func AssembleBatch(samples []Sample, want Shape) (Batch, error) {
	if len(samples) == 0 {
		return Batch{Shape: want}, nil
	}
	stride := want.Elems()
	backing := make([]float32, len(samples)*stride)
	labels := make([]int, len(samples))
	for i, s := range samples {
		if !s.Shape.Equal(want) {
			return Batch{}, errors.Wrapf(ErrShapeMismatch,
				"sample %d has shape %s, want %s", i, s.Shape, want)
		}
		copy(backing[i*stride:(i+1)*stride], s.X)
		labels[i] = s.Label
	}
	x := tensor.New(
		tensor.WithShape(len(samples), want.Channels, want.Height, want.Width),
		tensor.WithBacking(backing),
	)
	return Batch{X: x, Labels: labels, Shape: want}, nil
}

// Subset selects the rows whose mask entry equals keep, preserving order.
// The train and validation halves of a fold are complementary Subset calls
// over one mask.
func (b Batch) Subset(mask []bool, keep bool) (Batch, error) {
	if len(mask) != b.Len() {
		return Batch{}, errors.Errorf("mask length %d does not cover batch of %d", len(mask), b.Len())
	}
	n := 0
	for _, m := range mask {
		if m == keep {
			n++
		}
	}
	if n == 0 {
		return Batch{Shape: b.Shape}, nil
	}
	stride := b.Shape.Elems()
	backing := make([]float32, 0, n*stride)
	labels := make([]int, 0, n)
	for i, m := range mask {
		if m == keep {
			backing = append(backing, b.Row(i)...)
			labels = append(labels, b.Labels[i])
		}
	}
	x := tensor.New(
		tensor.WithShape(n, b.Shape.Channels, b.Shape.Height, b.Shape.Width),
		tensor.WithBacking(backing),
	)
	return Batch{X: x, Labels: labels, Shape: b.Shape}, nil
}
