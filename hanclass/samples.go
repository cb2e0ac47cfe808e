// Package hanclass trains document classifiers on
// labeled documents using stochastic gradient descent.
package hanclass

import (
	"github.com/unixpickle/anynet/anysgd"
)

// A Sample is a single labeled document.
//
// Document holds word indices grouped by sentence.
// At least one sentence must be non-empty.
// Class is the 0-based target class index; data formats
// with 1-based labels must be shifted by the caller.
type Sample struct {
	Document [][]int
	Class    int
}

// A SampleList is an anysgd.SampleList that produces
// labeled documents.
type SampleList interface {
	anysgd.SampleList

	GetSample(idx int) (*Sample, error)
}

// A SliceSampleList is a concrete SampleList with
// predetermined samples.
type SliceSampleList []*Sample

// Len returns the number of samples.
func (s SliceSampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SliceSampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a sub-slice of the list.
func (s SliceSampleList) Slice(i, j int) anysgd.SampleList {
	return append(SliceSampleList{}, s[i:j]...)
}

// GetSample returns the sample at the index.
func (s SliceSampleList) GetSample(idx int) (*Sample, error) {
	return s[idx], nil
}
