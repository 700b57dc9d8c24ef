package crossval

import (
	"github.com/pkg/errors"

	"crossfold/data"
)

// ConfusionMatrix is a NumClasses x NumClasses count matrix. Rows index the
// true class, columns the predicted class, both 1-based at the API and
// 0-based in storage. Class ordering is shared across all folds.
type ConfusionMatrix struct {
	NumClasses int
	Counts     [][]int
	Total      int
}

func NewConfusionMatrix(numClasses int) *ConfusionMatrix {
	counts := make([][]int, numClasses)
	for i := range counts {
		counts[i] = make([]int, numClasses)
	}
	return &ConfusionMatrix{NumClasses: numClasses, Counts: counts}
}

// Update counts one (true, predicted) label pair. A label outside
// [1, NumClasses] is a label-space violation and fatal to the run.
func (cm *ConfusionMatrix) Update(trueLabel, predLabel int) error {
	if trueLabel < 1 || trueLabel > cm.NumClasses {
		return errors.Wrapf(data.ErrLabelSpace, "true label %d not in [1,%d]", trueLabel, cm.NumClasses)
	}
	if predLabel < 1 || predLabel > cm.NumClasses {
		return errors.Wrapf(data.ErrLabelSpace, "predicted label %d not in [1,%d]", predLabel, cm.NumClasses)
	}
	cm.Counts[trueLabel-1][predLabel-1]++
	cm.Total++
	return nil
}

// Add accumulates another matrix element-wise.
func (cm *ConfusionMatrix) Add(o *ConfusionMatrix) error {
	if o.NumClasses != cm.NumClasses {
		return errors.Errorf("confusion: cannot add %d-class matrix to %d-class matrix",
			o.NumClasses, cm.NumClasses)
	}
	for i := range cm.Counts {
		for j := range cm.Counts[i] {
			cm.Counts[i][j] += o.Counts[i][j]
		}
	}
	cm.Total += o.Total
	return nil
}

// Accuracy is the diagonal mass over the total count.
func (cm *ConfusionMatrix) Accuracy() float64 {
	if cm.Total == 0 {
		return 0
	}
	correct := 0
	for i := range cm.Counts {
		correct += cm.Counts[i][i]
	}
	return float64(correct) / float64(cm.Total)
}
