package han

import (
	"math"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestEncoderKeptOrder(t *testing.T) {
	const dim = 3
	enc := NewEncoder(anyvec32.CurrentCreator(), dim, 2)
	embed := NewEmbedding(anyvec32.CurrentCreator(), 10, dim)
	tokens := [][]int{
		{4, 2, 7, 0, 0},
		{0, 0, 0, 0, 0},
		{9, 1, 3, 6, 2},
		{5, 0, 0, 0, 0},
	}
	lengths := []int{3, 0, 5, 1}

	out, kept := enc.Encode(tokenStep(embed, tokens), lengths)
	if !reflect.DeepEqual(kept, []int{0, 2, 3}) {
		t.Errorf("expected kept rows [0 2 3] but got %v", kept)
	}
	if out.Output().Len() != 3*5*enc.OutDim {
		t.Errorf("expected %d components but got %d",
			3*5*enc.OutDim, out.Output().Len())
	}

	// Positions past each row's length must be zero.
	data := out.Output().Data().([]float32)
	for i, length := range []int{3, 5, 1} {
		for j := length * enc.OutDim; j < 5*enc.OutDim; j++ {
			if data[i*5*enc.OutDim+j] != 0 {
				t.Errorf("row %d component %d: expected 0 but got %f",
					i, j, data[i*5*enc.OutDim+j])
			}
		}
	}
}

func TestEncoderRowConsistency(t *testing.T) {
	const dim = 3
	enc := NewEncoder(anyvec32.CurrentCreator(), dim, 2)
	embed := NewEmbedding(anyvec32.CurrentCreator(), 10, dim)
	tokens := [][]int{
		{4, 2, 7, 0, 0},
		{0, 0, 0, 0, 0},
		{9, 1, 3, 6, 2},
		{5, 0, 0, 0, 0},
	}
	lengths := []int{3, 0, 5, 1}

	out, kept := enc.Encode(tokenStep(embed, tokens), lengths)
	batchData := out.Output().Data().([]float32)
	for i, r := range kept {
		solo, _ := enc.Encode(tokenStep(embed, tokens[r:r+1]), lengths[r:r+1])
		soloData := solo.Output().Data().([]float32)
		for j, x := range soloData {
			b := batchData[i*5*enc.OutDim+j]
			if math.Abs(float64(x-b)) > 1e-3 {
				t.Errorf("row %d component %d: expected %f but got %f",
					r, j, x, b)
			}
		}
	}
}

func TestEncoderSingleRow(t *testing.T) {
	const dim = 3
	enc := NewEncoder(anyvec32.CurrentCreator(), dim, 2)
	embed := NewEmbedding(anyvec32.CurrentCreator(), 10, dim)
	tokens := [][]int{
		{0, 0, 0},
		{3, 8, 0},
		{0, 0, 0},
	}
	lengths := []int{0, 2, 0}

	out, kept := enc.Encode(tokenStep(embed, tokens), lengths)
	if !reflect.DeepEqual(kept, []int{1}) {
		t.Errorf("expected kept rows [1] but got %v", kept)
	}
	if out.Output().Len() != 2*enc.OutDim {
		t.Errorf("expected %d components but got %d",
			2*enc.OutDim, out.Output().Len())
	}
}

func TestEncoderProp(t *testing.T) {
	const dim = 2
	enc := NewEncoder(anyvec32.CurrentCreator(), dim, 1)
	embed := NewEmbedding(anyvec32.CurrentCreator(), 5, dim)
	tokens := [][]int{
		{4, 2, 0},
		{0, 0, 0},
		{3, 1, 2},
	}
	lengths := []int{2, 0, 3}

	checker := &anydifftest.ResChecker{
		F: func() anydiff.Res {
			out, _ := enc.Encode(tokenStep(embed, tokens), lengths)
			return out
		},
		V: append(embed.Parameters(), enc.Parameters()...),
	}
	checker.FullCheck(t)
}

// tokenStep feeds rows of a token matrix to an Encoder
// through an Embedding.
func tokenStep(e *Embedding, tokens [][]int) StepFunc {
	return func(t int, rows []int) anydiff.Res {
		toks := make([]int, len(rows))
		for i, r := range rows {
			toks[i] = tokens[r][t]
		}
		return e.Lookup(toks)
	}
}
