package initwfn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DefaultOrthogonalGain is the gain used for layers followed by a
// ReLU activation
var DefaultOrthogonalGain = math.Sqrt2

// OrthogonalConfig implements a configuration of the orthogonal weight
// initializer. Weights are the (semi-)orthogonal Q factor of the QR
// decomposition of a standard normal matrix, scaled by Gain.
type OrthogonalConfig struct {
	Gain float64
	Seed uint64
}

// NewOrthogonal returns a new orthogonal weight initializer
func NewOrthogonal(gain float64, seed uint64) (*InitWFn, error) {
	if gain <= 0 {
		return nil, fmt.Errorf("newOrthogonal: gain must be positive, "+
			"have %v", gain)
	}
	return newInitWFn(OrthogonalConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (o OrthogonalConfig) Type() Type {
	return Orthogonal
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn. Each call of the returned InitWFn draws a new matrix from
// the same seeded source.
func (o OrthogonalConfig) Create() G.InitWFn {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(o.Seed)}

	return func(dt tensor.Dtype, s ...int) interface{} {
		rows, cols := 1, 1
		switch len(s) {
		case 0:
		case 1:
			cols = s[0]
		default:
			rows = s[0]
			for _, dim := range s[1:] {
				cols *= dim
			}
		}

		weights := orthogonal(rows, cols, o.Gain, normal)
		switch dt {
		case tensor.Float64:
			return weights
		case tensor.Float32:
			weights32 := make([]float32, len(weights))
			for i := range weights {
				weights32[i] = float32(weights[i])
			}
			return weights32
		default:
			panic(fmt.Sprintf("orthogonal: dtype %v not supported", dt))
		}
	}
}

// orthogonal returns the row-major data of a rows x cols matrix with
// orthonormal rows or columns, whichever are fewer, scaled by gain.
func orthogonal(rows, cols int, gain float64,
	normal distuv.Normal) []float64 {
	// QR needs a matrix with at least as many rows as columns
	m, n := rows, cols
	transposed := rows < cols
	if transposed {
		m, n = cols, rows
	}

	data := make([]float64, m*n)
	for i := range data {
		data[i] = normal.Rand()
	}
	a := mat.NewDense(m, n, data)

	var qr mat.QR
	qr.Factorize(a)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	// Make the decomposition unique by forcing a positive diagonal of R
	w := mat.DenseCopyOf(q.Slice(0, m, 0, n))
	for j := 0; j < n; j++ {
		sign := 1.0
		if r.At(j, j) < 0 {
			sign = -1.0
		}
		for i := 0; i < m; i++ {
			w.Set(i, j, w.At(i, j)*sign*gain)
		}
	}

	out := make([]float64, 0, rows*cols)
	if transposed {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out = append(out, w.At(j, i))
			}
		}
		return out
	}
	for i := 0; i < rows; i++ {
		out = append(out, w.RawRowView(i)...)
	}
	return out
}
