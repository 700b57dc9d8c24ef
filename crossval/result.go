package crossval

import (
	"time"

	"github.com/google/uuid"

	"crossfold/ml"
)

// FoldResult is everything one fold produces. It exclusively owns its model
// handle and confusion matrix; nothing mutates it after the fold completes.
type FoldResult struct {
	TrainingTime time.Duration
	TestingTime  time.Duration
	Model        ml.Model
	Confusion    *ConfusionMatrix
}

func (fr *FoldResult) Accuracy() float64 {
	return fr.Confusion.Accuracy()
}

// Result is the full cross-validation outcome: one FoldResult per fold in
// the dataset's stable order, plus the element-wise sum of all per-fold
// confusion matrices, finalized once after the last fold.
type Result struct {
	RunID      uuid.UUID
	NumClasses int
	FoldNames  []string
	Folds      map[string]*FoldResult
	Confusion  *ConfusionMatrix
}

func newResult(numClasses int, foldNames []string) *Result {
	names := make([]string, len(foldNames))
	copy(names, foldNames)
	return &Result{
		RunID:      uuid.New(),
		NumClasses: numClasses,
		FoldNames:  names,
		Folds:      map[string]*FoldResult{},
	}
}

// aggregate sums the per-fold matrices. It must only run once every fold has
// recorded a result.
func (r *Result) aggregate() error {
	total := NewConfusionMatrix(r.NumClasses)
	for _, name := range r.FoldNames {
		if err := total.Add(r.Folds[name].Confusion); err != nil {
			return err
		}
	}
	r.Confusion = total
	return nil
}
