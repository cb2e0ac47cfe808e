package han

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var d DocClassifier
	serializer.RegisterTypedDeserializer(d.SerializerType(), DeserializeDocClassifier)
}

// A DocClassifier scores documents against a fixed set of
// classes using a two-level encoder with attention.
//
// Words of each sentence are embedded and encoded into a
// sentence vector by Words and WordPool; the sentence
// vectors are encoded into a document vector by Sents and
// SentPool; Out projects the document vector to one score
// per class.
type DocClassifier struct {
	Embed    *Embedding
	Words    *Encoder
	WordPool *AttentionPool
	Sents    *Encoder
	SentPool *AttentionPool
	Out      *anynet.FC

	// Padding is the reserved token index that marks
	// unused positions in token batches.
	Padding int
}

// DeserializeDocClassifier attempts to deserialize a
// DocClassifier.
func DeserializeDocClassifier(d []byte) (*DocClassifier, error) {
	var res DocClassifier
	var padding serializer.Int
	err := serializer.DeserializeAny(d, &res.Embed, &res.Words, &res.WordPool,
		&res.Sents, &res.SentPool, &res.Out, &padding)
	if err != nil {
		return nil, essentials.AddCtx("deserialize DocClassifier", err)
	}
	res.Padding = int(padding)
	return &res, nil
}

// NewDocClassifier creates a new, randomized
// DocClassifier.
//
// Both encoders use hidden units per direction, so the
// sentence and document vectors have hidden*2 components.
func NewDocClassifier(c anyvec.Creator, vocab, embDim, hidden, attnDim,
	classes, padding int) *DocClassifier {
	words := NewEncoder(c, embDim, hidden)
	sents := NewEncoder(c, words.OutDim, hidden)
	return &DocClassifier{
		Embed:    NewEmbedding(c, vocab, embDim),
		Words:    words,
		WordPool: NewAttentionPool(c, words.OutDim, attnDim),
		Sents:    sents,
		SentPool: NewAttentionPool(c, sents.OutDim, attnDim),
		Out:      anynet.NewFC(c, sents.OutDim, classes),
		Padding:  padding,
	}
}

// A Result is the output of one forward pass.
type Result struct {
	// Logits contains one unnormalized class-score vector
	// per document.
	Logits anydiff.Res

	// WordWeights holds one attention weight batch per
	// sentence slot, each batchSize x nWords in row-major
	// order.
	// Rows for empty sentences are zero.
	WordWeights []anyvec.Vector

	// SentWeights is the document-level attention weight
	// batch, batchSize x nSentences.
	SentWeights anyvec.Vector

	// SentenceCounts is the number of non-empty sentences
	// observed per document.
	SentenceCounts []int
}

// Apply runs a forward pass over a batch of documents.
//
// The batch is indexed as [document][sentence][word] and
// must be rectangular; under-length sentences and unused
// sentence slots are filled with the padding index.
// The batch is read, never modified.
//
// Apply panics if the batch is empty, ragged, or contains
// no non-empty sentence in any document.
func (d *DocClassifier) Apply(batch [][][]int) *Result {
	if len(batch) == 0 || len(batch[0]) == 0 || len(batch[0][0]) == 0 {
		panic("doc classifier: empty batch")
	}
	batchSize := len(batch)
	nSents := len(batch[0])
	nWords := len(batch[0][0])
	feat := d.Words.OutDim
	c := d.Creator()

	counts := make([]int, batchSize)
	wordWeights := make([]anyvec.Vector, 0, nSents)
	sentVecs := make([]anydiff.Res, 0, nSents)
	for s := 0; s < nSents; s++ {
		slot := make([][]int, batchSize)
		for i, doc := range batch {
			if len(doc) != nSents || len(doc[s]) != nWords {
				panic("doc classifier: ragged batch")
			}
			slot[i] = doc[s]
		}
		lengths := SeqLengths(slot, d.Padding)
		if allZero(lengths) {
			// The slot is unused by every document, so
			// there is nothing to encode.
			wordWeights = append(wordWeights, c.MakeVector(batchSize*nWords))
			sentVecs = append(sentVecs, anydiff.NewConst(c.MakeVector(batchSize*feat)))
			continue
		}
		enc, kept := d.Words.Encode(func(t int, rows []int) anydiff.Res {
			toks := make([]int, len(rows))
			for j, r := range rows {
				toks[j] = slot[r][t]
			}
			return d.Embed.Lookup(toks)
		}, lengths)
		steps := enc.Output().Len() / (len(kept) * feat)
		pooled := d.WordPool.Apply(enc, len(kept), steps)
		for _, r := range kept {
			counts[r]++
		}
		weights := RepackWeights(pooled.Weights, kept, batchSize)
		wordWeights = append(wordWeights, padColumns(weights, batchSize, steps, nWords))
		sentVecs = append(sentVecs, Repack(pooled.Pooled, kept, batchSize))
	}
	if allZero(counts) {
		panic("doc classifier: no non-empty sentences in batch")
	}

	// The per-slot vectors are slot-major; the sentence
	// encoder consumes them document-first.
	stacked := batchFirst(anydiff.Concat(sentVecs...), nSents, batchSize, feat)

	var sentWeights anyvec.Vector
	logits := anydiff.Pool(stacked, func(docs anydiff.Res) anydiff.Res {
		enc, kept := d.Sents.Encode(func(t int, rows []int) anydiff.Res {
			parts := make([]anydiff.Res, len(rows))
			for j, r := range rows {
				start := (r*nSents + t) * feat
				parts[j] = anydiff.Slice(docs, start, start+feat)
			}
			return anydiff.Concat(parts...)
		}, counts)
		steps := enc.Output().Len() / (len(kept) * d.Sents.OutDim)
		pooled := d.SentPool.Apply(enc, len(kept), steps)
		weights := RepackWeights(pooled.Weights, kept, batchSize)
		sentWeights = padColumns(weights, batchSize, steps, nSents)
		return d.Out.Apply(Repack(pooled.Pooled, kept, batchSize), batchSize)
	})

	return &Result{
		Logits:         logits,
		WordWeights:    wordWeights,
		SentWeights:    sentWeights,
		SentenceCounts: counts,
	}
}

// Creator returns the creator of the model's parameters.
func (d *DocClassifier) Creator() anyvec.Creator {
	return d.Embed.Vectors.Vector.Creator()
}

// Classes returns the number of output classes.
func (d *DocClassifier) Classes() int {
	return d.Out.OutCount
}

// Parameters returns the parameters of every component,
// in a stable order.
func (d *DocClassifier) Parameters() []*anydiff.Var {
	return anynet.AllParameters(d.Embed, d.Words, d.WordPool, d.Sents,
		d.SentPool, d.Out)
}

// SerializerType returns the unique ID used to serialize
// a DocClassifier with the serializer package.
func (d *DocClassifier) SerializerType() string {
	return "github.com/notnami/han.DocClassifier"
}

// Serialize serializes the DocClassifier.
func (d *DocClassifier) Serialize() ([]byte, error) {
	return serializer.SerializeAny(d.Embed, d.Words, d.WordPool, d.Sents,
		d.SentPool, d.Out, serializer.Int(d.Padding))
}

// padColumns zero-extends each row of a rows x from
// matrix to rows x to columns.
func padColumns(v anyvec.Vector, rows, from, to int) anyvec.Vector {
	if from == to {
		return v
	}
	if from > to {
		panic(fmt.Sprintf("cannot shrink %d columns to %d", from, to))
	}
	c := v.Creator()
	parts := make([]anyvec.Vector, 0, rows*2)
	for i := 0; i < rows; i++ {
		parts = append(parts, v.Slice(i*from, (i+1)*from), c.MakeVector(to-from))
	}
	return c.Concat(parts...)
}
