package topic

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

const epsilon = 1e-10

// NMF factorizes a non-negative document-term matrix X (n×m) into W (n×k)
// and H (k×m) by minimizing the generalized Kullback-Leibler divergence with
// multiplicative updates.
type NMF struct {
	Components int
	MaxIter    int
	Seed       uint64

	// Tol stops the updates once the relative improvement of the
	// divergence, checked every 10 iterations, drops below it.
	Tol float64
}

// Fit returns the topic-term matrix H. Row i holds the term weights of topic i.
func (m NMF) Fit(x *mat.Dense) (*mat.Dense, error) {
	n, terms := x.Dims()
	k := m.Components
	if k < 1 {
		return nil, fmt.Errorf("nmf: components must be >= 1, got %d", k)
	}
	maxIter := m.MaxIter
	if maxIter < 1 {
		maxIter = 200
	}
	tol := m.Tol
	if tol <= 0 {
		tol = 1e-4
	}

	rng := rand.New(rand.NewPCG(m.Seed, m.Seed))
	scale := math.Sqrt(mat.Sum(x) / float64(n*terms) / float64(k))
	w := randomDense(rng, n, k, scale)
	h := randomDense(rng, k, terms, scale)

	var wh, ratio, numH, numW mat.Dense
	initial := klDivergence(x, w, h)
	previous := initial

	for iter := 1; iter <= maxIter; iter++ {
		// H <- H * (W^T (X / WH)) / (W^T 1)
		wh.Mul(w, h)
		divide(&ratio, x, &wh)
		numH.Mul(w.T(), &ratio)
		wSums := columnSums(w)
		for t := 0; t < k; t++ {
			for j := 0; j < terms; j++ {
				h.Set(t, j, h.At(t, j)*numH.At(t, j)/(wSums[t]+epsilon))
			}
		}

		// W <- W * ((X / WH) H^T) / (1 H^T)
		wh.Mul(w, h)
		divide(&ratio, x, &wh)
		numW.Mul(&ratio, h.T())
		hSums := rowSums(h)
		for i := 0; i < n; i++ {
			for t := 0; t < k; t++ {
				w.Set(i, t, w.At(i, t)*numW.At(i, t)/(hSums[t]+epsilon))
			}
		}

		if iter%10 == 0 {
			div := klDivergence(x, w, h)
			if initial > 0 && (previous-div)/initial < tol {
				break
			}
			previous = div
		}
	}
	return h, nil
}

func randomDense(rng *rand.Rand, r, c int, scale float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = scale*math.Abs(rng.NormFloat64()) + epsilon
	}
	return mat.NewDense(r, c, data)
}

// divide sets dst = x / (y + eps) element-wise.
func divide(dst *mat.Dense, x, y mat.Matrix) {
	dst.Apply(func(i, j int, v float64) float64 {
		return v / (y.At(i, j) + epsilon)
	}, x)
}

func columnSums(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j] += m.At(i, j)
		}
	}
	return out
}

func rowSums(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = mat.Sum(m.RowView(i))
	}
	return out
}

// klDivergence returns D(X || WH) = sum(x log(x/wh) - x + wh).
func klDivergence(x, w, h *mat.Dense) float64 {
	var wh mat.Dense
	wh.Mul(w, h)
	r, c := x.Dims()
	var d float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			xv, v := x.At(i, j), wh.At(i, j)+epsilon
			if xv > 0 {
				d += xv * math.Log(xv/v)
			}
			d += v - xv
		}
	}
	return d
}
