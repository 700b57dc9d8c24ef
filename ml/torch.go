package ml

import (
	"math"
	"math/rand"
	"unsafe"

	"github.com/pkg/errors"
	torch "github.com/wangkuiyi/gotorch"
	"github.com/wangkuiyi/gotorch/nn"
	F "github.com/wangkuiyi/gotorch/nn/functional"

	"crossfold/data"
)

// TorchEngine realizes the architecture with libtorch. The compute device is
// CPU by contract.
type TorchEngine struct {
	device torch.Device
}

func NewTorchEngine() *TorchEngine {
	return &TorchEngine{device: torch.NewDevice("cpu")}
}

// tileNet is the fixed topology as a gotorch module. Normalization happens
// on the Go side before tensors are built, so the module starts at the
// convolution.
type tileNet struct {
	nn.Module
	Conv *nn.Conv2dModule
	FC   *nn.LinearModule
	flat int64
}

func newTileNet(a Arch) *tileNet {
	conv := a.ConvStage()
	in := a.InputShape
	pad := int64(conv.FilterSize / 2) // same-size output for odd filters, stride 1
	n := &tileNet{
		Conv: nn.Conv2d(int64(in.Channels), int64(conv.Filters), int64(conv.FilterSize),
			1, pad, 1, 1, true, "zeros"),
		FC:   nn.Linear(int64(conv.Filters*in.Height*in.Width), int64(a.NumClasses), true),
		flat: int64(conv.Filters * in.Height * in.Width),
	}
	n.Init(n)
	return n
}

func (n *tileNet) Forward(x torch.Tensor) torch.Tensor {
	x = n.Conv.Forward(x)
	x = x.Relu()
	x = x.View(-1, n.flat)
	x = n.FC.Forward(x)
	// LogSoftmax + NllLoss together form the softmax/classification-loss pair.
	return x.LogSoftmax(1)
}

type torchModel struct {
	net    *tileNet
	stats  *channelStats
	device torch.Device
	shape  data.Shape
}

func (e *TorchEngine) Build(arch Arch) (ModelSpec, error) {
	if err := arch.Validate(); err != nil {
		return ModelSpec{}, err
	}
	return ModelSpec{Arch: arch}, nil
}

func (e *TorchEngine) Fit(spec ModelSpec, train, valid data.Batch, opts FitOptions) (Model, error) {
	// An empty training subset (full hold-out) is legal: no minibatch is
	// ever formed and the freshly initialized network is returned as-is.
	if !train.Shape.Equal(spec.Arch.InputShape) {
		return nil, errors.Wrapf(data.ErrShapeMismatch, "train batch %s vs architecture input %s",
			train.Shape, spec.Arch.InputShape)
	}
	defer torch.FinishGC()

	net := newTileNet(spec.Arch)
	net.To(e.device)

	opt := torch.Adam(opts.InitLearnRate, 0.9, 0.999, 0)
	opt.AddParameters(net.Parameters())
	defer opt.Close()

	stats := computeChannelStats(train)
	rng := rand.New(rand.NewSource(opts.Seed))

	lr := opts.InitLearnRate
	best := math.Inf(1)
	bad := 0
	step := 0
	stop := false

	for epoch := 0; epoch < opts.MaxEpochs && !stop; epoch++ {
		if epoch > 0 && opts.LearnDropPeriod > 0 && epoch%opts.LearnDropPeriod == 0 {
			lr *= opts.LearnDropFactor
			opt.SetLR(lr)
		}
		perm := rng.Perm(train.Len())
		for start := 0; start < len(perm) && !stop; start += opts.MiniBatchSize {
			end := min(start+opts.MiniBatchSize, len(perm))
			x, y := e.tensors(train, perm[start:end], stats)

			opt.ZeroGrad()
			pred := net.Forward(x)
			loss := F.NllLoss(pred, y, torch.Tensor{}, -100, "mean")
			loss.Backward()
			clipGradNorm(net.Parameters(), opts.GradClipNorm)
			opt.Step()
			step++

			if valid.Len() > 0 && opts.ValidFrequency > 0 && step%opts.ValidFrequency == 0 {
				vl := e.validLoss(net, valid, stats)
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
	return &torchModel{net: net, stats: stats, device: e.device, shape: train.Shape}, nil
}

func (e *TorchEngine) Predict(m Model, x data.Batch) ([]int, error) {
	tm, ok := m.(*torchModel)
	if !ok {
		return nil, errors.Wrap(ErrTraining, "model was not produced by the torch engine")
	}
	if x.Len() == 0 {
		return nil, nil
	}
	if !x.Shape.Equal(tm.shape) {
		return nil, errors.Wrapf(data.ErrShapeMismatch, "test batch %s vs model input %s", x.Shape, tm.shape)
	}

	stride := x.Shape.Elems()
	out := make([]int, x.Len())
	for i := range out {
		buf := make([]float32, stride)
		tm.stats.apply(x.Row(i), x.Shape, buf)
		t := torch.FromBlob(unsafe.Pointer(&buf[0]), torch.Float,
			[]int64{1, int64(x.Shape.Channels), int64(x.Shape.Height), int64(x.Shape.Width)})
		pred := tm.net.Forward(t.To(tm.device, t.Dtype())).Argmax()
		out[i] = int(pred.Item().(int64)) + 1
	}
	return out, nil
}

func (e *TorchEngine) tensors(b data.Batch, idx []int, stats *channelStats) (torch.Tensor, torch.Tensor) {
	stride := b.Shape.Elems()
	buf := make([]float32, len(idx)*stride)
	lab := make([]int64, len(idx))
	for i, j := range idx {
		stats.apply(b.Row(j), b.Shape, buf[i*stride:(i+1)*stride])
		lab[i] = int64(b.Labels[j] - 1) // engines train on 0-based targets
	}
	x := torch.FromBlob(unsafe.Pointer(&buf[0]), torch.Float,
		[]int64{int64(len(idx)), int64(b.Shape.Channels), int64(b.Shape.Height), int64(b.Shape.Width)})
	y := torch.FromBlob(unsafe.Pointer(&lab[0]), torch.Long, []int64{int64(len(idx))})
	return x.To(e.device, x.Dtype()), y.To(e.device, y.Dtype())
}

func (e *TorchEngine) validLoss(net *tileNet, valid data.Batch, stats *channelStats) float64 {
	idx := make([]int, valid.Len())
	for i := range idx {
		idx[i] = i
	}
	x, y := e.tensors(valid, idx, stats)
	loss := F.NllLoss(net.Forward(x), y, torch.Tensor{}, -100, "mean")
	return float64(loss.Item().(float32))
}

// clipGradNorm rescales all gradients so their global L2 norm does not
// exceed clip.
func clipGradNorm(params []torch.Tensor, clip float64) {
	if clip <= 0 {
		return
	}
	total := 0.0
	for _, p := range params {
		g := p.Grad()
		total += float64(torch.Sum(g.Mul(g)).Item().(float32))
	}
	norm := math.Sqrt(total)
	if norm <= clip {
		return
	}
	scale := clip / norm
	for _, p := range params {
		g := p.Grad()
		// g - (1-scale)*g == scale*g, built from the subtract-with-alpha op.
		p.Grad().SetData(torch.Sub(g, g, float32(1-scale)))
	}
}
