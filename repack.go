package han

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Repack scatters row vectors computed for a subset of a
// batch back into a full-size batch.
//
// Row i of the result is the vector for i's position in
// kept, or a zero vector if i does not appear in kept.
// The zero rows are genuine graph constants, so the
// result stays differentiable with respect to the kept
// rows no matter how many rows were dropped.
func Repack(in anydiff.Res, kept []int, batchSize int) anydiff.Res {
	if len(kept) == 0 {
		panic("repack: no kept rows")
	}
	if in.Output().Len()%len(kept) != 0 {
		panic(fmt.Sprintf("input length %d not divisible by %d rows",
			in.Output().Len(), len(kept)))
	}
	dim := in.Output().Len() / len(kept)
	c := in.Output().Creator()
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		rows := make([]anydiff.Res, batchSize)
		for j, idx := range kept {
			if idx < 0 || idx >= batchSize {
				panic(fmt.Sprintf("kept index out of range: %d", idx))
			}
			rows[idx] = anydiff.Slice(in, j*dim, (j+1)*dim)
		}
		for i, row := range rows {
			if row == nil {
				rows[i] = anydiff.NewConst(c.MakeVector(dim))
			}
		}
		return anydiff.Concat(rows...)
	})
}

// RepackWeights is the raw-vector analogue of Repack,
// used for diagnostic attention weights.
//
// Rows missing from kept become zero rows, which are not
// valid probability distributions; callers tell them
// apart using the corresponding sequence lengths.
func RepackWeights(in anyvec.Vector, kept []int, batchSize int) anyvec.Vector {
	if len(kept) == 0 || in.Len()%len(kept) != 0 {
		panic(fmt.Sprintf("weight count %d does not fit %d rows",
			in.Len(), len(kept)))
	}
	dim := in.Len() / len(kept)
	c := in.Creator()
	rows := make([]anyvec.Vector, batchSize)
	for j, idx := range kept {
		rows[idx] = in.Slice(j*dim, (j+1)*dim)
	}
	for i, row := range rows {
		if row == nil {
			rows[i] = c.MakeVector(dim)
		}
	}
	return c.Concat(rows...)
}
