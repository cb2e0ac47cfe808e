package han

import (
	"sort"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var e Encoder
	serializer.RegisterTypedDeserializer(e.SerializerType(), DeserializeEncoder)
}

// A StepFunc supplies the packed input vectors for one
// timestep of an Encoder pass.
//
// The rows argument lists the original row indices that
// are still running at timestep t; the result must
// contain one input vector per listed row, concatenated
// in the listed order.
type StepFunc func(t int, rows []int) anydiff.Res

// An Encoder runs a bidirectional recurrent network over
// a batch of variable-length sequences.
//
// Rows of length zero are excluded from the recurrent
// pass entirely; the remaining rows are encoded together
// in a single packed pass regardless of their lengths.
type Encoder struct {
	Bidir *anyrnn.Bidir

	// OutDim is the per-timestep output size of Bidir.
	OutDim int
}

// DeserializeEncoder attempts to deserialize an Encoder.
func DeserializeEncoder(d []byte) (*Encoder, error) {
	var bidir *anyrnn.Bidir
	var outDim serializer.Int
	if err := serializer.DeserializeAny(d, &bidir, &outDim); err != nil {
		return nil, essentials.AddCtx("deserialize Encoder", err)
	}
	return &Encoder{Bidir: bidir, OutDim: int(outDim)}, nil
}

// NewEncoder creates an Encoder with randomized forward
// and backward LSTM blocks whose per-timestep outputs are
// concatenated, giving hidden*2 outputs per timestep.
func NewEncoder(c anyvec.Creator, inDim, hidden int) *Encoder {
	return &Encoder{
		Bidir: &anyrnn.Bidir{
			Forward:  anyrnn.NewLSTM(c, inDim, hidden),
			Backward: anyrnn.NewLSTM(c, inDim, hidden),
			Mixer:    anynet.ConcatMixer{},
		},
		OutDim: hidden * 2,
	}
}

// Encode encodes every row whose length is positive.
//
// It returns a kept x maxLen x OutDim batch-first tensor
// of per-timestep hidden vectors, zero-filled past each
// row's own length, together with the kept row indices in
// their original relative order.
// The tensor's rows follow the kept order, not the
// length-sorted order used internally.
//
// Encode panics if every length is zero; the caller must
// handle slots that are empty across the whole batch.
func (e *Encoder) Encode(step StepFunc, lengths []int) (anydiff.Res, []int) {
	var kept []int
	for i, l := range lengths {
		if l > 0 {
			kept = append(kept, i)
		}
	}
	if len(kept) == 0 {
		panic("encode: no non-empty rows")
	}

	// The packed timestep batches assume that sequences
	// only ever drop out as time advances, so the kept
	// rows are ordered longest-first.
	// A single kept row needs no ordering at all.
	order := make([]int, len(kept))
	copy(order, kept)
	if len(order) > 1 {
		sort.SliceStable(order, func(i, j int) bool {
			return lengths[order[i]] > lengths[order[j]]
		})
	}
	maxLen := lengths[order[0]]

	batches := make([]*anyseq.ResBatch, 0, maxLen)
	for t := 0; t < maxLen; t++ {
		present := make([]bool, len(order))
		var rows []int
		for j, r := range order {
			if lengths[r] > t {
				present[j] = true
				rows = append(rows, r)
			}
		}
		batches = append(batches, &anyseq.ResBatch{
			Packed:  step(t, rows),
			Present: present,
		})
	}

	c := batches[0].Packed.Output().Creator()
	out := e.Bidir.Apply(anyseq.ResSeq(c, batches))
	padded := unpackSeq(out, e.OutDim)
	return unsortRows(padded, order, kept, maxLen*e.OutDim), kept
}

// Parameters returns the parameters of the underlying
// recurrent blocks.
func (e *Encoder) Parameters() []*anydiff.Var {
	return e.Bidir.Parameters()
}

// SerializerType returns the unique ID used to serialize
// an Encoder with the serializer package.
func (e *Encoder) SerializerType() string {
	return "github.com/notnami/han.Encoder"
}

// Serialize serializes the Encoder.
func (e *Encoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(e.Bidir, serializer.Int(e.OutDim))
}

// unsortRows restores rows from the length-sorted order
// to their original relative order.
func unsortRows(in anydiff.Res, order, kept []int, rowLen int) anydiff.Res {
	if len(order) == 1 {
		return in
	}
	pos := make(map[int]int, len(order))
	for j, r := range order {
		pos[r] = j
	}
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		parts := make([]anydiff.Res, len(kept))
		for i, r := range kept {
			j := pos[r]
			parts[i] = anydiff.Slice(in, j*rowLen, (j+1)*rowLen)
		}
		return anydiff.Concat(parts...)
	})
}

// unpackSeq lays a packed sequence batch out as a padded
// batch-first tensor of rows x steps x dim components,
// with zeros at every absent position.
// The zeros are part of the computation graph; gradients
// at present positions flow back into the sequence.
func unpackSeq(s anyseq.Seq, dim int) anydiff.Res {
	outBatches := s.Output()
	if len(outBatches) == 0 {
		panic("unpack: empty sequence")
	}
	rows := len(outBatches[0].Present)
	steps := len(outBatches)
	c := outBatches[0].Packed.Creator()

	table := make([]int, 0, rows*steps*dim)
	joined := make([]anyvec.Vector, 0, steps)
	for t, b := range outBatches {
		joined = append(joined, b.Packed)
		for r, pres := range b.Present {
			if !pres {
				continue
			}
			base := (r*steps + t) * dim
			for i := 0; i < dim; i++ {
				table = append(table, base+i)
			}
		}
	}
	mapper := c.MakeMapper(rows*steps*dim, table)
	outVec := c.MakeVector(rows * steps * dim)
	mapper.MapTranspose(c.Concat(joined...), outVec)
	return &unpackRes{
		In:     s,
		Mapper: mapper,
		OutVec: outVec,
	}
}

type unpackRes struct {
	In     anyseq.Seq
	Mapper anyvec.Mapper
	OutVec anyvec.Vector
}

func (u *unpackRes) Output() anyvec.Vector {
	return u.OutVec
}

func (u *unpackRes) Vars() anydiff.VarSet {
	return u.In.Vars()
}

func (u *unpackRes) Propagate(upstream anyvec.Vector, g anydiff.Grad) {
	packed := upstream.Creator().MakeVector(u.Mapper.OutSize())
	u.Mapper.Map(upstream, packed)
	inBatches := u.In.Output()
	downstream := make([]*anyseq.Batch, len(inBatches))
	offset := 0
	for i, b := range inBatches {
		n := b.Packed.Len()
		downstream[i] = &anyseq.Batch{
			Packed:  packed.Slice(offset, offset+n),
			Present: b.Present,
		}
		offset += n
	}
	u.In.Propagate(downstream, g)
}
