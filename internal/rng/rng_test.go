package rng

import "testing"

func TestSameSeedSameStream(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("streams diverged at draw %d", i)
		}
		if a.Intn(17) != b.Intn(17) {
			t.Fatalf("int streams diverged at draw %d", i)
		}
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	r := New(7)
	xs := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	r.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })

	seen := make(map[int]bool, len(xs))
	for _, x := range xs {
		if seen[x] {
			t.Fatalf("duplicate value after shuffle: %v", xs)
		}
		seen[x] = true
	}
	if len(seen) != 10 {
		t.Fatalf("shuffle lost values: %v", xs)
	}
}

func TestIntnRange(t *testing.T) {
	r := New(1)
	for i := 0; i < 1000; i++ {
		if v := r.Intn(5); v < 0 || v >= 5 {
			t.Fatalf("Intn out of range: %d", v)
		}
		if f := r.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %f", f)
		}
	}
}
