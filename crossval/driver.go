package crossval

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"crossfold/config"
	"crossfold/data"
	"crossfold/ml"
)

// learnDropPeriod is the epoch interval of the piecewise schedule; the drop
// factor itself comes from the training options.
const learnDropPeriod = 10

// gradClipNorm is the fixed gradient-norm threshold of the normalized
// training configuration.
const gradClipNorm = 1.0

// Driver runs the whole cross-validation: Init, partition every fold's
// validation mask, then sequentially train and evaluate each fold, then
// aggregate. Any fold failure aborts the run; there is no partial result.
type Driver struct {
	engine ml.Engine
	train  *data.Dataset
	test   *data.Dataset
	opts   config.TrainingOptions
	arch   config.Architecture
	rnd    config.Randomness
	log    *zap.SugaredLogger
}

// NewDriver normalizes the training-option list immediately, so a missing
// required option fails here, before any fold is touched.
func NewDriver(engine ml.Engine, train, test *data.Dataset, training []config.Option,
	arch config.Architecture, rnd config.Randomness, log *zap.SugaredLogger) (*Driver, error) {

	opts, err := config.ParseTrainingOptions(training)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateGenerator(rnd.Generator); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Driver{
		engine: engine,
		train:  train,
		test:   test,
		opts:   opts,
		arch:   arch,
		rnd:    rnd,
		log:    log,
	}, nil
}

// Run executes Init -> PartitionFolds -> {TrainFold, EvaluateFold}* ->
// Aggregate and returns the finalized result.
func (d *Driver) Run() (*Result, error) {
	// Init: fold alignment, class space, input shape, architecture.
	if err := data.CheckFoldAlignment(d.train, d.test); err != nil {
		return nil, err
	}
	numClasses, err := data.InferNumClasses(d.train, d.test)
	if err != nil {
		return nil, err
	}
	if err := data.CheckLabelSpace(d.train, d.test, numClasses); err != nil {
		return nil, err
	}
	shape, err := data.InferShape(d.train)
	if err != nil {
		return nil, err
	}
	arch := ml.BuildArch(shape, d.arch.FilterSize, d.arch.NumFilters, numClasses)
	spec, err := d.engine.Build(arch)
	if err != nil {
		return nil, errors.Wrap(err, "build architecture")
	}

	result := newResult(numClasses, d.train.FoldNames)
	d.log.Infof("run %s: %d folds, %d classes, input %s",
		result.RunID, len(result.FoldNames), numClasses, shape)

	// PartitionFolds: every fold's validation mask is derived up front from
	// its own stream, independent of training and of other folds.
	masks := make([][]bool, len(result.FoldNames))
	for i, name := range result.FoldNames {
		rng := data.NewFoldStream(d.rnd.Seed, d.rnd.Generator, i)
		masks[i] = data.HoldOutMask(len(d.train.Samples(name)), d.opts.ValidPerc, rng)
	}

	fit := ml.FitOptions{
		InitLearnRate:   d.opts.InitLearnRate,
		LearnDropFactor: d.opts.LearnDropFactor,
		LearnDropPeriod: learnDropPeriod,
		MaxEpochs:       d.opts.MaxEpochs,
		MiniBatchSize:   d.opts.MiniBatchSize,
		ValidPatience:   d.opts.ValidPatience,
		ValidFrequency:  d.opts.ValidFrequency,
		GradClipNorm:    gradClipNorm,
		Seed:            d.rnd.Seed,
	}

	// Sequential fold loop in the dataset's stable order.
	for i, name := range result.FoldNames {
		fr, err := d.runFold(name, masks[i], spec, shape, fit)
		if err != nil {
			return nil, errors.Wrapf(err, "fold %q", name)
		}
		result.Folds[name] = fr
		d.log.Infof("fold %s: accuracy %.4f, train %s, test %s",
			name, fr.Accuracy(), fr.TrainingTime, fr.TestingTime)
	}

	// Aggregate: only after every fold has a result.
	if err := result.aggregate(); err != nil {
		return nil, err
	}
	d.log.Infof("run %s: aggregate accuracy %.4f over %d test samples",
		result.RunID, result.Confusion.Accuracy(), result.Confusion.Total)
	return result, nil
}

func (d *Driver) runFold(name string, mask []bool, spec ml.ModelSpec,
	shape data.Shape, fit ml.FitOptions) (*FoldResult, error) {

	trainBatch, err := data.AssembleBatch(d.train.Samples(name), shape)
	if err != nil {
		return nil, err
	}
	testBatch, err := data.AssembleBatch(d.test.Samples(name), shape)
	if err != nil {
		return nil, err
	}

	trainSub, err := trainBatch.Subset(mask, false)
	if err != nil {
		return nil, err
	}
	validSub, err := trainBatch.Subset(mask, true)
	if err != nil {
		return nil, err
	}
	d.log.Debugf("fold %s: %d train, %d validation, %d test samples",
		name, trainSub.Len(), validSub.Len(), testBatch.Len())

	start := time.Now()
	model, err := d.engine.Fit(spec, trainSub, validSub, fit)
	trainingTime := time.Since(start)
	if err != nil {
		return nil, errors.Wrap(err, "fit")
	}

	start = time.Now()
	pred, err := d.engine.Predict(model, testBatch)
	testingTime := time.Since(start)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	if len(pred) != testBatch.Len() {
		return nil, errors.Wrapf(ml.ErrTraining,
			"engine returned %d predictions for %d test samples", len(pred), testBatch.Len())
	}

	cm := NewConfusionMatrix(spec.Arch.NumClasses)
	for i, p := range pred {
		if err := cm.Update(testBatch.Labels[i], p); err != nil {
			return nil, err
		}
	}

	return &FoldResult{
		TrainingTime: trainingTime,
		TestingTime:  testingTime,
		Model:        model,
		Confusion:    cm,
	}, nil
}
