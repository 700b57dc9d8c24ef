package ml

import (
	"math"

	"crossfold/data"
)

// channelStats carries the per-channel zero-center/rescale statistics the
// Normalize stage applies. They are computed from the training batch only
// and frozen into the trained model.
type channelStats struct {
	mean []float32
	std  []float32
}

func computeChannelStats(b data.Batch) *channelStats {
	c := b.Shape.Channels
	plane := b.Shape.Height * b.Shape.Width

	// A fully held-out fold trains on nothing; identity statistics keep the
	// untrained model usable.
	if b.Len() == 0 {
		cs := &channelStats{mean: make([]float32, c), std: make([]float32, c)}
		for ch := 0; ch < c; ch++ {
			cs.std[ch] = 1
		}
		return cs
	}

	mean := make([]float64, c)
	m2 := make([]float64, c)

	n := b.Len() * plane
	for i := 0; i < b.Len(); i++ {
		row := b.Row(i)
		for ch := 0; ch < c; ch++ {
			for _, v := range row[ch*plane : (ch+1)*plane] {
				mean[ch] += float64(v)
				m2[ch] += float64(v) * float64(v)
			}
		}
	}

	cs := &channelStats{mean: make([]float32, c), std: make([]float32, c)}
	for ch := 0; ch < c; ch++ {
		m := mean[ch] / float64(n)
		variance := m2[ch]/float64(n) - m*m
		if variance < 1e-12 {
			variance = 1e-12
		}
		cs.mean[ch] = float32(m)
		cs.std[ch] = float32(math.Sqrt(variance))
	}
	return cs
}

// apply writes the normalized sample into dst, which must have the same
// length as row.
func (cs *channelStats) apply(row []float32, shape data.Shape, dst []float32) {
	plane := shape.Height * shape.Width
	for ch := 0; ch < shape.Channels; ch++ {
		m, s := cs.mean[ch], cs.std[ch]
		for i := ch * plane; i < (ch+1)*plane; i++ {
			dst[i] = (row[i] - m) / s
		}
	}
}
