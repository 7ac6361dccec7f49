package rng

import "math/rand"

// Source is the single random stream a simulation draws from. Every draw of
// a run must go through one Source for a seed to reproduce the run.
type Source interface {
	Float64() float64
	Intn(n int) int
	Bool() bool
	Shuffle(n int, swap func(i, j int))
}

// Rand is a seeded Source backed by math/rand.
type Rand struct {
	r *rand.Rand
}

func New(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

func (r *Rand) Float64() float64 { return r.r.Float64() }
func (r *Rand) Intn(n int) int   { return r.r.Intn(n) }
func (r *Rand) Bool() bool       { return r.r.Intn(2) == 1 }

// Shuffle permutes in place with Fisher-Yates.
func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	r.r.Shuffle(n, swap)
}
