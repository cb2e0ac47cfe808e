package hanclass

import (
	"errors"
	"fmt"

	"github.com/notnami/han"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Batch stores a rectangular token batch and the
// corresponding one-hot class targets.
type Batch struct {
	Documents [][][]int
	Outputs   *anydiff.Const
}

// A Trainer creates batches, computes gradients, and adds
// up costs for a document classifier.
type Trainer struct {
	Classifier *han.DocClassifier
	Cost       anynet.Cost
	Params     []*anydiff.Var

	// Average indicates whether or not the total cost
	// should be averaged before computing gradients.
	// This affects gradients, LastCost, and the output of
	// TotalCost().
	Average bool

	// After every gradient computation, LastCost is set
	// to the cost from the batch.
	LastCost anyvec.Numeric
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must implement SampleList.
// The batch may not be empty, and every document must
// contain at least one non-empty sentence.
//
// Documents are padded to a shared sentence and word
// count with the classifier's padding index.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	if s.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}
	l := s.(SampleList)
	classes := t.Classifier.Classes()

	samples := make([]*Sample, l.Len())
	var maxSents, maxWords int
	for i := range samples {
		sample, err := l.GetSample(i)
		if err != nil {
			return nil, essentials.AddCtx("fetch batch", err)
		}
		if sample.Class < 0 || sample.Class >= classes {
			return nil, fmt.Errorf("fetch batch: class out of range: %d",
				sample.Class)
		}
		var words int
		for _, sent := range sample.Document {
			if len(sent) > words {
				words = len(sent)
			}
		}
		if words == 0 {
			return nil, errors.New("fetch batch: empty document")
		}
		if len(sample.Document) > maxSents {
			maxSents = len(sample.Document)
		}
		if words > maxWords {
			maxWords = words
		}
		samples[i] = sample
	}

	padding := t.Classifier.Padding
	docs := make([][][]int, len(samples))
	oneHot := make([]float64, len(samples)*classes)
	for i, sample := range samples {
		doc := make([][]int, maxSents)
		for s := range doc {
			row := make([]int, maxWords)
			for w := range row {
				row[w] = padding
			}
			if s < len(sample.Document) {
				copy(row, sample.Document[s])
			}
			doc[s] = row
		}
		docs[i] = doc
		oneHot[i*classes+sample.Class] = 1
	}

	c := t.Classifier.Creator()
	outs := c.MakeVectorData(c.MakeNumericList(oneHot))
	return &Batch{Documents: docs, Outputs: anydiff.NewConst(outs)}, nil
}

// TotalCost computes the total cost for the *Batch.
//
// The classifier's logits are passed through a log
// softmax before the cost, so a cost like anynet.DotCost
// sees log-probabilities.
func (t *Trainer) TotalCost(batch anysgd.Batch) anydiff.Res {
	b := batch.(*Batch)
	n := len(b.Documents)
	res := t.Classifier.Apply(b.Documents)
	logProbs := anynet.LogSoftmax.Apply(res.Logits, n)
	cost := t.Cost.Cost(b.Outputs, logProbs, n)
	total := anydiff.Sum(cost)
	if t.Average {
		divisor := 1 / float64(cost.Output().Len())
		return anydiff.Scale(total, total.Output().Creator().MakeNumeric(divisor))
	} else {
		return total
	}
}

// Gradient computes the gradient for the batch's cost.
// It also sets t.LastCost to the numerical value of the
// total cost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	grad, lc := anysgd.CosterGrad(t, b, t.Params)
	t.LastCost = lc
	return grad
}
