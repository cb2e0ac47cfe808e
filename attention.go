package han

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var a AttentionPool
	serializer.RegisterTypedDeserializer(a.SerializerType(), DeserializeAttentionPool)
}

// An AttentionPool reduces a batch of equal-length
// timestep-vector sequences to one vector per sequence.
//
// Each timestep is projected through a learned affine
// transform followed by a tanh, then scored by its dot
// product with a learned context vector.
// The scores are normalized over timesteps with a softmax
// and the pooled vector is the weighted sum of the raw
// input timesteps under that distribution.
//
// The pool carries no positional information of its own;
// ordering can only influence the result through the
// content of the upstream encoder's outputs.
type AttentionPool struct {
	// Transform produces the representation that is
	// scored against Context.
	Transform *anynet.FC

	// Context is the learned context vector.
	// Its length is Transform.OutCount.
	Context *anydiff.Var

	// TimeMajor indicates that inputs to Apply are laid
	// out time-first (steps x rows x dim) and must be
	// permuted to batch-first form before pooling.
	TimeMajor bool
}

// DeserializeAttentionPool attempts to deserialize an
// AttentionPool.
func DeserializeAttentionPool(d []byte) (*AttentionPool, error) {
	var transform *anynet.FC
	var context *anyvecsave.S
	var timeMajor serializer.Int
	err := serializer.DeserializeAny(d, &transform, &context, &timeMajor)
	if err != nil {
		return nil, essentials.AddCtx("deserialize AttentionPool", err)
	}
	return &AttentionPool{
		Transform: transform,
		Context:   anydiff.NewVar(context.Vector),
		TimeMajor: timeMajor != 0,
	}, nil
}

// NewAttentionPool creates a new, randomized
// AttentionPool for timestep vectors of size inDim.
func NewAttentionPool(c anyvec.Creator, inDim, attnDim int) *AttentionPool {
	context := c.MakeVector(attnDim)
	anyvec.Rand(context, anyvec.Normal, nil)
	context.Scale(c.MakeNumeric(1 / math.Sqrt(float64(attnDim))))
	return &AttentionPool{
		Transform: anynet.NewFC(c, inDim, attnDim),
		Context:   anydiff.NewVar(context),
	}
}

// An Attended is the result of applying an AttentionPool.
type Attended struct {
	// Pooled contains one vector per input row.
	Pooled anydiff.Res

	// Weights is the normalized attention distribution,
	// one scalar per timestep per row in row-major order.
	// It is a diagnostic snapshot; gradients flow through
	// Pooled.
	Weights anyvec.Vector
}

// Apply pools a batch of rows sequences, each steps
// timesteps long.
//
// The input must contain rows*steps equally-sized
// vectors, laid out batch-first unless a.TimeMajor is
// set.
// It is invalid to call Apply with zero rows or steps.
func (a *AttentionPool) Apply(in anydiff.Res, rows, steps int) *Attended {
	if rows == 0 || steps == 0 {
		panic("attention pool: empty input")
	}
	if in.Output().Len()%(rows*steps) != 0 {
		panic(fmt.Sprintf("input length %d not divisible by %d vectors",
			in.Output().Len(), rows*steps))
	}
	dim := in.Output().Len() / (rows * steps)
	if a.TimeMajor {
		in = batchFirst(in, steps, rows, dim)
	}
	var weightsOut anyvec.Vector
	pooled := anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		weights := a.weigh(in, rows, steps)
		weightsOut = weights.Output().Copy()
		return anydiff.Pool(weights, func(weights anydiff.Res) anydiff.Res {
			sums := make([]anydiff.Res, rows)
			for i := range sums {
				w := &anydiff.Matrix{
					Data: anydiff.Slice(weights, i*steps, (i+1)*steps),
					Rows: 1,
					Cols: steps,
				}
				vecs := &anydiff.Matrix{
					Data: anydiff.Slice(in, i*steps*dim, (i+1)*steps*dim),
					Rows: steps,
					Cols: dim,
				}
				sums[i] = anydiff.MatMul(false, false, w, vecs).Data
			}
			return anydiff.Concat(sums...)
		})
	})
	return &Attended{Pooled: pooled, Weights: weightsOut}
}

// weigh computes the attention distribution over the
// timesteps of each row.
// The softmax is evaluated in log space, so large scores
// cannot overflow.
func (a *AttentionPool) weigh(in anydiff.Res, rows, steps int) anydiff.Res {
	attnDim := a.Context.Vector.Len()
	hidden := anydiff.Tanh(a.Transform.Apply(in, rows*steps))
	hiddenMat := &anydiff.Matrix{
		Data: hidden,
		Rows: rows * steps,
		Cols: attnDim,
	}
	contextMat := &anydiff.Matrix{
		Data: a.Context,
		Rows: 1,
		Cols: attnDim,
	}
	scores := anydiff.MatMul(false, true, hiddenMat, contextMat)
	return anydiff.Exp(anydiff.LogSoftmax(scores.Data, steps))
}

// Parameters returns the transform's parameters followed
// by the context vector.
func (a *AttentionPool) Parameters() []*anydiff.Var {
	return append(a.Transform.Parameters(), a.Context)
}

// SerializerType returns the unique ID used to serialize
// an AttentionPool with the serializer package.
func (a *AttentionPool) SerializerType() string {
	return "github.com/notnami/han.AttentionPool"
}

// Serialize serializes the AttentionPool.
func (a *AttentionPool) Serialize() ([]byte, error) {
	var timeMajor serializer.Int
	if a.TimeMajor {
		timeMajor = 1
	}
	return serializer.SerializeAny(
		a.Transform,
		&anyvecsave.S{Vector: a.Context.Vector},
		timeMajor,
	)
}

// batchFirst permutes a steps x rows x dim tensor to
// rows x steps x dim.
func batchFirst(in anydiff.Res, steps, rows, dim int) anydiff.Res {
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		parts := make([]anydiff.Res, 0, rows*steps)
		for r := 0; r < rows; r++ {
			for t := 0; t < steps; t++ {
				start := (t*rows + r) * dim
				parts = append(parts, anydiff.Slice(in, start, start+dim))
			}
		}
		return anydiff.Concat(parts...)
	})
}
