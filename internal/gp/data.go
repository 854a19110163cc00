package gp

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ErrEmptyDataset is returned for datasets or batches with no rows.
var ErrEmptyDataset = errors.New("dataset is empty")

// Dataset holds N inputs of dimension D and N targets with P outputs.
type Dataset struct {
	X *mat.Dense // N×D
	Y *mat.Dense // N×P
}

// NewDataset checks that x and y have the same number of rows.
func NewDataset(x, y *mat.Dense) (*Dataset, error) {
	if x == nil || y == nil || x.IsEmpty() || y.IsEmpty() {
		return nil, ErrEmptyDataset
	}
	xr, _ := x.Dims()
	yr, _ := y.Dims()
	if xr != yr {
		return nil, fmt.Errorf("dataset: %d inputs but %d targets", xr, yr)
	}
	return &Dataset{X: x, Y: y}, nil
}

// Len returns N.
func (d *Dataset) Len() int {
	n, _ := d.X.Dims()
	return n
}

// InputDim returns D.
func (d *Dataset) InputDim() int {
	_, c := d.X.Dims()
	return c
}

// Outputs returns P.
func (d *Dataset) Outputs() int {
	_, c := d.Y.Dims()
	return c
}

// Subset returns a copy of the rows listed in idx.
func (d *Dataset) Subset(idx []int) *Dataset {
	x := mat.NewDense(len(idx), d.InputDim(), nil)
	y := mat.NewDense(len(idx), d.Outputs(), nil)
	for i, j := range idx {
		x.SetRow(i, d.X.RawRowView(j))
		y.SetRow(i, d.Y.RawRowView(j))
	}
	return &Dataset{X: x, Y: y}
}

// NewSynthetic draws n inputs uniformly from [0, 5]^d and one noisy target
// per input from a smooth function of the inputs.
func NewSynthetic(n, d int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, d, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < d; j++ {
			v := 5 * rng.Float64()
			x.Set(i, j, v)
			s += math.Sin(v) * float64(j+1) / float64(d)
		}
		y.Set(i, 0, s+0.1*rng.NormFloat64())
	}
	return &Dataset{X: x, Y: y}
}

// Batcher yields the data for one loss evaluation.
type Batcher interface {
	Next() *Dataset
}

type fullBatch struct {
	data *Dataset
}

func (f fullBatch) Next() *Dataset { return f.data }

// FullBatch returns a Batcher that always yields all of data.
func FullBatch(data *Dataset) Batcher {
	return fullBatch{data: data}
}

// Minibatches iterates over a dataset in shuffled batches. Every point
// appears exactly once per epoch; the order is reshuffled at the start of
// each epoch. The last batch of an epoch may be smaller than the batch size.
type Minibatches struct {
	data  *Dataset
	size  int
	rng   *rand.Rand
	perm  []int
	pos   int
	epoch int
}

// NewMinibatches creates an iterator with the given batch size and seed.
func NewMinibatches(data *Dataset, size int, seed int64) (*Minibatches, error) {
	if data == nil || data.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if size <= 0 {
		return nil, fmt.Errorf("minibatches: batch size must be positive, got %d", size)
	}
	size = min(size, data.Len())
	m := &Minibatches{
		data: data,
		size: size,
		rng:  rand.New(rand.NewSource(seed)),
	}
	m.perm = m.rng.Perm(data.Len())
	return m, nil
}

// Next returns the next batch.
func (m *Minibatches) Next() *Dataset {
	if m.pos >= len(m.perm) {
		m.rng.Shuffle(len(m.perm), func(i, j int) { m.perm[i], m.perm[j] = m.perm[j], m.perm[i] })
		m.pos = 0
		m.epoch++
	}
	end := min(m.pos+m.size, len(m.perm))
	batch := m.data.Subset(m.perm[m.pos:end])
	m.pos = end
	return batch
}

// Epoch returns the index of the pass the last batch came from, starting
// at zero.
func (m *Minibatches) Epoch() int {
	return m.epoch
}

// Size returns the batch size.
func (m *Minibatches) Size() int {
	return m.size
}
