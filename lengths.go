package han

// SeqLengths measures the true length of each row in a
// batch of padded token index sequences.
//
// The length of a row is the index of the first
// occurrence of the padding index, or the full row length
// if the padding index never occurs.
// A row which begins with the padding index has length 0.
// An interior padding token truncates the measured
// length, even if real tokens follow it.
func SeqLengths(rows [][]int, padding int) []int {
	res := make([]int, len(rows))
	for i, row := range rows {
		length := len(row)
		for j, tok := range row {
			if tok == padding {
				length = j
				break
			}
		}
		res[i] = length
	}
	return res
}
