// Package han implements hierarchical attention networks
// for document classification.
// A document is encoded in two levels: a bidirectional
// recurrent encoder with content-based attention turns
// each sentence's words into a sentence vector, and a
// second encoder+attention pass turns the sentence
// vectors into a document vector, which is projected to
// class scores.
//
// Token batches are dense integer arrays indexed as
// [document][sentence][word], with a reserved padding
// index marking unused trailing positions.
// Sentences of unequal word count and documents of
// unequal sentence count are handled by encoding only the
// non-empty rows and repacking the results into the
// original batch layout, so the output always has a
// uniform shape.
package han

// allZero reports whether every length is zero.
func allZero(lengths []int) bool {
	for _, l := range lengths {
		if l != 0 {
			return false
		}
	}
	return true
}
