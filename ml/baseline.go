package ml

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"crossfold/data"
)

// BaselineEngine is a pure-Go engine: multinomial logistic regression on the
// flattened, normalized tiles, trained with Adam. It honors the same
// training contract as the torch engine (piecewise LR, clipping, patience)
// and exists so the harness runs and tests without libtorch.
type BaselineEngine struct{}

func NewBaselineEngine() *BaselineEngine {
	return &BaselineEngine{}
}

type baselineModel struct {
	w          *mat.Dense // K x D
	b          *mat.Dense // K x 1
	stats      *channelStats
	shape      data.Shape
	numClasses int
}

func (e *BaselineEngine) Build(arch Arch) (ModelSpec, error) {
	if err := arch.Validate(); err != nil {
		return ModelSpec{}, err
	}
	return ModelSpec{Arch: arch}, nil
}

func (e *BaselineEngine) Fit(spec ModelSpec, train, valid data.Batch, opts FitOptions) (Model, error) {
	// An empty training subset (full hold-out) is legal: the epoch loop sees
	// no samples and the freshly initialized model is returned as-is.
	if !train.Shape.Equal(spec.Arch.InputShape) {
		return nil, errors.Wrapf(data.ErrShapeMismatch, "train batch %s vs architecture input %s",
			train.Shape, spec.Arch.InputShape)
	}

	k := spec.Arch.NumClasses
	d := train.Shape.Elems()
	stats := computeChannelStats(train)

	xs := normalizedRows(train, stats)
	vxs := normalizedRows(valid, stats)

	rng := rand.New(rand.NewSource(opts.Seed))
	m := &baselineModel{
		w:          initWeights(k, d, rng),
		b:          mat.NewDense(k, 1, nil),
		stats:      stats,
		shape:      train.Shape,
		numClasses: k,
	}

	gw := mat.NewDense(k, d, nil)
	gb := mat.NewDense(k, 1, nil)
	mw := mat.NewDense(k, d, nil)
	vw := mat.NewDense(k, d, nil)
	mb := mat.NewDense(k, 1, nil)
	vb := mat.NewDense(k, 1, nil)

	lr := opts.InitLearnRate
	best := math.Inf(1)
	bad := 0
	step := 0
	adamT := 0
	stop := false

	for epoch := 0; epoch < opts.MaxEpochs && !stop; epoch++ {
		if epoch > 0 && opts.LearnDropPeriod > 0 && epoch%opts.LearnDropPeriod == 0 {
			lr *= opts.LearnDropFactor
		}
		perm := rng.Perm(train.Len())
		for start := 0; start < len(perm) && !stop; start += opts.MiniBatchSize {
			end := min(start+opts.MiniBatchSize, len(perm))

			gw.Zero()
			gb.Zero()
			for _, j := range perm[start:end] {
				m.accumulateGrad(xs[j], train.Labels[j]-1, gw, gb)
			}
			scale := 1.0 / float64(end-start)
			gw.Scale(scale, gw)
			gb.Scale(scale, gb)
			clipDenseNorm(opts.GradClipNorm, gw, gb)

			adamT++
			adamInPlace(m.w, gw, mw, vw, adamT, lr)
			adamInPlace(m.b, gb, mb, vb, adamT, lr)
			step++

			if valid.Len() > 0 && opts.ValidFrequency > 0 && step%opts.ValidFrequency == 0 {
				vl := m.meanLoss(vxs, valid.Labels)
				if vl < best {
					best = vl
					bad = 0
				} else {
					bad++
					if bad >= opts.ValidPatience {
						stop = true
					}
				}
			}
		}
	}
	return m, nil
}

func (e *BaselineEngine) Predict(model Model, x data.Batch) ([]int, error) {
	m, ok := model.(*baselineModel)
	if !ok {
		return nil, errors.Wrap(ErrTraining, "model was not produced by the baseline engine")
	}
	if x.Len() == 0 {
		return nil, nil
	}
	if !x.Shape.Equal(m.shape) {
		return nil, errors.Wrapf(data.ErrShapeMismatch, "test batch %s vs model input %s", x.Shape, m.shape)
	}

	xs := normalizedRows(x, m.stats)
	out := make([]int, x.Len())
	logits := make([]float64, m.numClasses)
	for i, row := range xs {
		m.logits(row, logits)
		argmax := 0
		for c := 1; c < len(logits); c++ {
			if logits[c] > logits[argmax] {
				argmax = c
			}
		}
		out[i] = argmax + 1
	}
	return out, nil
}

func (m *baselineModel) logits(x []float64, dst []float64) {
	for c := 0; c < m.numClasses; c++ {
		sum := m.b.At(c, 0)
		row := m.w.RawRowView(c)
		for d, v := range x {
			sum += row[d] * v
		}
		dst[c] = sum
	}
}

// accumulateGrad adds one sample's softmax cross-entropy gradient.
func (m *baselineModel) accumulateGrad(x []float64, target int, gw, gb *mat.Dense) {
	p := make([]float64, m.numClasses)
	m.logits(x, p)
	softmaxInPlace(p)
	p[target] -= 1
	for c := 0; c < m.numClasses; c++ {
		gb.Set(c, 0, gb.At(c, 0)+p[c])
		grow := gw.RawRowView(c)
		for d, v := range x {
			grow[d] += p[c] * v
		}
	}
}

func (m *baselineModel) meanLoss(xs [][]float64, labels []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	p := make([]float64, m.numClasses)
	total := 0.0
	for i, x := range xs {
		m.logits(x, p)
		softmaxInPlace(p)
		total += -math.Log(math.Max(p[labels[i]-1], 1e-15))
	}
	return total / float64(len(xs))
}

func softmaxInPlace(v []float64) {
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	sum := 0.0
	for i := range v {
		v[i] = math.Exp(v[i] - max)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

func normalizedRows(b data.Batch, stats *channelStats) [][]float64 {
	xs := make([][]float64, b.Len())
	stride := b.Shape.Elems()
	tmp := make([]float32, stride)
	for i := range xs {
		stats.apply(b.Row(i), b.Shape, tmp)
		row := make([]float64, stride)
		for d, v := range tmp {
			row[d] = float64(v)
		}
		xs[i] = row
	}
	return xs
}

func initWeights(k, d int, rng *rand.Rand) *mat.Dense {
	w := mat.NewDense(k, d, nil)
	scale := 1.0 / math.Sqrt(float64(d))
	for i := 0; i < k; i++ {
		for j := 0; j < d; j++ {
			w.Set(i, j, rng.NormFloat64()*scale)
		}
	}
	return w
}

// clipDenseNorm rescales the gradient matrices so their joint L2 norm stays
// under clip.
func clipDenseNorm(clip float64, gs ...*mat.Dense) {
	if clip <= 0 {
		return
	}
	total := 0.0
	for _, g := range gs {
		n := mat.Norm(g, 2)
		total += n * n
	}
	norm := math.Sqrt(total)
	if norm <= clip {
		return
	}
	scale := clip / norm
	for _, g := range gs {
		g.Scale(scale, g)
	}
}

// adamInPlace applies one bias-corrected Adam update to p.
func adamInPlace(p, g, m, v *mat.Dense, t int, lr float64) {
	const (
		beta1 = 0.9
		beta2 = 0.999
		eps   = 1e-8
	)
	r, c := p.Dims()
	c1 := 1.0 / (1.0 - math.Pow(beta1, float64(t)))
	c2 := 1.0 / (1.0 - math.Pow(beta2, float64(t)))
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			gij := g.At(i, j)
			mij := beta1*m.At(i, j) + (1.0-beta1)*gij
			vij := beta2*v.At(i, j) + (1.0-beta2)*gij*gij
			mhat := mij * c1
			vhat := vij * c2
			m.Set(i, j, mij)
			v.Set(i, j, vij)
			p.Set(i, j, p.At(i, j)-lr*mhat/(math.Sqrt(vhat)+eps))
		}
	}
}
