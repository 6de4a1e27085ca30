package topic

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// LDA fits Latent Dirichlet Allocation with collapsed Gibbs sampling over a
// raw term-count matrix.
type LDA struct {
	Components int
	Iterations int
	Seed       uint64

	// Alpha and Beta are the document-topic and topic-word priors. Zero
	// means 1/Components.
	Alpha float64
	Beta  float64
}

// Fit returns the topic-term pseudo-count matrix (topic-word counts plus
// Beta). Row i holds the term weights of topic i.
func (m LDA) Fit(x *mat.Dense) (*mat.Dense, error) {
	docs, terms := x.Dims()
	k := m.Components
	if k < 1 {
		return nil, fmt.Errorf("lda: components must be >= 1, got %d", k)
	}
	iterations := m.Iterations
	if iterations < 1 {
		iterations = 200
	}
	alpha, beta := m.Alpha, m.Beta
	if alpha <= 0 {
		alpha = 1 / float64(k)
	}
	if beta <= 0 {
		beta = 1 / float64(k)
	}

	type token struct{ doc, term, topic int }
	var tokens []token
	for d := 0; d < docs; d++ {
		for w := 0; w < terms; w++ {
			c := x.At(d, w)
			if c < 0 || c != math.Trunc(c) {
				return nil, fmt.Errorf("lda: entry (%d,%d)=%v is not a term count", d, w, c)
			}
			for range int(c) {
				tokens = append(tokens, token{doc: d, term: w})
			}
		}
	}

	rng := rand.New(rand.NewPCG(m.Seed, m.Seed^0x9e3779b97f4a7c15))
	docTopic := mat.NewDense(docs, k, nil)
	topicTerm := mat.NewDense(k, terms, nil)
	topicTotal := make([]float64, k)

	assign := func(t *token, topic int, delta float64) {
		t.topic = topic
		docTopic.Set(t.doc, topic, docTopic.At(t.doc, topic)+delta)
		topicTerm.Set(topic, t.term, topicTerm.At(topic, t.term)+delta)
		topicTotal[topic] += delta
	}
	for i := range tokens {
		assign(&tokens[i], rng.IntN(k), 1)
	}

	vBeta := float64(terms) * beta
	p := make([]float64, k)
	for range iterations {
		for i := range tokens {
			t := &tokens[i]
			assign(t, t.topic, -1)

			var sum float64
			for z := 0; z < k; z++ {
				sum += (docTopic.At(t.doc, z) + alpha) *
					(topicTerm.At(z, t.term) + beta) / (topicTotal[z] + vBeta)
				p[z] = sum
			}
			u := rng.Float64() * sum
			z := 0
			for z < k-1 && p[z] < u {
				z++
			}
			assign(t, z, 1)
		}
	}

	topicTerm.Apply(func(_, _ int, v float64) float64 { return v + beta }, topicTerm)
	return topicTerm, nil
}
