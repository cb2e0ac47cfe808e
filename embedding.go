package han

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var e Embedding
	serializer.RegisterTypedDeserializer(e.SerializerType(), DeserializeEmbedding)
}

// An Embedding is a learned table mapping token indices
// to fixed-size vectors.
type Embedding struct {
	VocabSize int
	Dim       int
	Vectors   *anydiff.Var
}

// DeserializeEmbedding attempts to deserialize an
// Embedding.
func DeserializeEmbedding(d []byte) (*Embedding, error) {
	var dim serializer.Int
	var vecs *anyvecsave.S
	if err := serializer.DeserializeAny(d, &dim, &vecs); err != nil {
		return nil, essentials.AddCtx("deserialize Embedding", err)
	}
	if dim == 0 || vecs.Vector.Len()%int(dim) != 0 {
		return nil, fmt.Errorf("deserialize Embedding: bad vector count %d for dim %d",
			vecs.Vector.Len(), dim)
	}
	return &Embedding{
		VocabSize: vecs.Vector.Len() / int(dim),
		Dim:       int(dim),
		Vectors:   anydiff.NewVar(vecs.Vector),
	}, nil
}

// NewEmbedding creates a new, randomized Embedding.
func NewEmbedding(c anyvec.Creator, vocab, dim int) *Embedding {
	vecs := c.MakeVector(vocab * dim)
	anyvec.Rand(vecs, anyvec.Normal, nil)
	vecs.Scale(c.MakeNumeric(1 / math.Sqrt(float64(dim))))
	return &Embedding{
		VocabSize: vocab,
		Dim:       dim,
		Vectors:   anydiff.NewVar(vecs),
	}
}

// NewEmbeddingData creates an Embedding initialized from
// a pre-trained table, laid out as vocab consecutive
// rows of dim components.
// The table is copied, not retained.
func NewEmbeddingData(vocab, dim int, table anyvec.Vector) *Embedding {
	if table.Len() != vocab*dim {
		panic(fmt.Sprintf("table length should be %d, but got %d",
			vocab*dim, table.Len()))
	}
	return &Embedding{
		VocabSize: vocab,
		Dim:       dim,
		Vectors:   anydiff.NewVar(table.Copy()),
	}
}

// Lookup gathers the embedding vectors for a list of
// token indices, producing one vector per token in order.
// The result is differentiable with respect to the table.
func (e *Embedding) Lookup(tokens []int) anydiff.Res {
	c := e.Vectors.Vector.Creator()
	table := make([]int, 0, len(tokens)*e.Dim)
	for _, tok := range tokens {
		if tok < 0 || tok >= e.VocabSize {
			panic(fmt.Sprintf("token index out of range: %d", tok))
		}
		for i := 0; i < e.Dim; i++ {
			table = append(table, tok*e.Dim+i)
		}
	}
	mapper := c.MakeMapper(e.VocabSize*e.Dim, table)
	out := c.MakeVector(mapper.OutSize())
	mapper.Map(e.Vectors.Vector, out)
	return &embedRes{
		In:     e.Vectors,
		Mapper: mapper,
		OutVec: out,
	}
}

// Parameters returns a slice containing the table.
func (e *Embedding) Parameters() []*anydiff.Var {
	return []*anydiff.Var{e.Vectors}
}

// SerializerType returns the unique ID used to serialize
// an Embedding with the serializer package.
func (e *Embedding) SerializerType() string {
	return "github.com/notnami/han.Embedding"
}

// Serialize serializes the Embedding.
func (e *Embedding) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(e.Dim),
		&anyvecsave.S{Vector: e.Vectors.Vector},
	)
}

type embedRes struct {
	In     *anydiff.Var
	Mapper anyvec.Mapper
	OutVec anyvec.Vector
}

func (e *embedRes) Output() anyvec.Vector {
	return e.OutVec
}

func (e *embedRes) Vars() anydiff.VarSet {
	return e.In.Vars()
}

func (e *embedRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	down := u.Creator().MakeVector(e.Mapper.InSize())
	e.Mapper.MapTranspose(u, down)
	e.In.Propagate(down, g)
}
