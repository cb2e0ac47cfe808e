package han

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestAttentionPoolWeights(t *testing.T) {
	const rows, steps, dim = 3, 4, 5
	pool := NewAttentionPool(anyvec32.CurrentCreator(), dim, 6)
	in := randomVar(rows * steps * dim)

	res := pool.Apply(in, rows, steps)
	weights := res.Weights.Data().([]float32)
	if len(weights) != rows*steps {
		t.Fatalf("expected %d weights but got %d", rows*steps, len(weights))
	}
	for i := 0; i < rows; i++ {
		var sum float64
		for j := 0; j < steps; j++ {
			w := float64(weights[i*steps+j])
			if w < 0 {
				t.Errorf("row %d: negative weight %f", i, w)
			}
			sum += w
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("row %d: weights sum to %f", i, sum)
		}
	}
}

func TestAttentionPoolOutput(t *testing.T) {
	const rows, steps, dim = 2, 3, 4
	pool := NewAttentionPool(anyvec32.CurrentCreator(), dim, 3)
	in := randomVar(rows * steps * dim)

	res := pool.Apply(in, rows, steps)
	weights := res.Weights.Data().([]float32)
	inData := in.Vector.Data().([]float32)
	actual := res.Pooled.Output().Data().([]float32)
	if len(actual) != rows*dim {
		t.Fatalf("expected %d components but got %d", rows*dim, len(actual))
	}
	for i := 0; i < rows; i++ {
		for d := 0; d < dim; d++ {
			var expected float64
			for j := 0; j < steps; j++ {
				w := float64(weights[i*steps+j])
				expected += w * float64(inData[(i*steps+j)*dim+d])
			}
			a := float64(actual[i*dim+d])
			if math.Abs(expected-a) > 1e-4 {
				t.Errorf("row %d component %d: expected %f but got %f",
					i, d, expected, a)
			}
		}
	}
}

func TestAttentionPoolTimeMajor(t *testing.T) {
	const rows, steps, dim = 2, 3, 4
	pool := NewAttentionPool(anyvec32.CurrentCreator(), dim, 3)
	in := randomVar(rows * steps * dim)

	batchOut := pool.Apply(in, rows, steps).Pooled.Output().Data().([]float32)

	inData := in.Vector.Data().([]float32)
	timeData := make([]float32, len(inData))
	for r := 0; r < rows; r++ {
		for s := 0; s < steps; s++ {
			copy(timeData[(s*rows+r)*dim:(s*rows+r+1)*dim],
				inData[(r*steps+s)*dim:(r*steps+s+1)*dim])
		}
	}
	pool.TimeMajor = true
	timeIn := anydiff.NewConst(anyvec32.MakeVectorData(timeData))
	timeOut := pool.Apply(timeIn, rows, steps).Pooled.Output().Data().([]float32)

	for i, x := range batchOut {
		if math.Abs(float64(x-timeOut[i])) > 1e-5 {
			t.Errorf("component %d: expected %f but got %f", i, x, timeOut[i])
		}
	}
}

func TestAttentionPoolProp(t *testing.T) {
	const rows, steps, dim = 2, 3, 4
	pool := NewAttentionPool(anyvec32.CurrentCreator(), dim, 3)
	in := randomVar(rows * steps * dim)

	checker := &anydifftest.ResChecker{
		F: func() anydiff.Res {
			return pool.Apply(in, rows, steps).Pooled
		},
		V: append([]*anydiff.Var{in}, pool.Parameters()...),
	}
	checker.FullCheck(t)
}

func randomVar(size int) *anydiff.Var {
	vec := anyvec32.MakeVector(size)
	anyvec.Rand(vec, anyvec.Normal, nil)
	return anydiff.NewVar(vec)
}
