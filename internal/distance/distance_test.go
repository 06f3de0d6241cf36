package distance

import "testing"

func TestSquaredEuclidean(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"simple", []float32{0, 0}, []float32{3, 4}, 25},
		{"unrolled tail", []float32{1, 2, 3, 4, 5}, []float32{0, 0, 0, 0, 0}, 1 + 4 + 9 + 16 + 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SquaredEuclidean(tc.a, tc.b)
			if got != tc.want {
				t.Fatalf("SquaredEuclidean(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestSquaredEuclideanSymmetric(t *testing.T) {
	a := []float32{1.5, -2.5, 3.0, 0.0, 7.25}
	b := []float32{-1.0, 2.0, 3.0, 4.0, 7.25}
	if SquaredEuclidean(a, b) != SquaredEuclidean(b, a) {
		t.Fatal("expected symmetric distance")
	}
}
