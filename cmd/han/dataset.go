package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/unixpickle/essentials"
)

// Reserved vocabulary indices.
// PadIndex is the padding sentinel consumed by the model;
// UnkIndex stands in for words outside the vocabulary.
const (
	PadIndex = 0
	UnkIndex = 1
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// A Dataset is a list of labeled, tokenized documents.
type Dataset struct {
	ClassNames []string
	Classes    []int
	Documents  [][][]string
}

// LoadDataset reads a file with one document per line,
// formatted as "label<TAB>text".
// Class indices are assigned in order of first
// appearance.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("load dataset", err)
	}
	defer f.Close()

	ds := &Dataset{}
	classIdx := map[string]int{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<22)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		label, text, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("load dataset: line %d: missing tab", lineNum)
		}
		doc := Tokenize(text)
		if len(doc) == 0 {
			return nil, fmt.Errorf("load dataset: line %d: no words", lineNum)
		}
		idx, ok := classIdx[label]
		if !ok {
			idx = len(ds.ClassNames)
			classIdx[label] = idx
			ds.ClassNames = append(ds.ClassNames, label)
		}
		ds.Classes = append(ds.Classes, idx)
		ds.Documents = append(ds.Documents, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("load dataset", err)
	}
	if len(ds.Documents) == 0 {
		return nil, fmt.Errorf("load dataset: no documents in %s", path)
	}
	return ds, nil
}

// Tokenize splits text into sentences of lower-cased
// words.
// Sentences end at ".", "!" or "?"; words are maximal
// runs of letters and digits.
// Empty sentences are dropped.
func Tokenize(text string) [][]string {
	var res [][]string
	for _, sent := range sentenceSplit.Split(text, -1) {
		words := strings.FieldsFunc(strings.ToLower(sent), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len(words) > 0 {
			res = append(res, words)
		}
	}
	return res
}

// A Vocab maps words to embedding indices, keeping
// indices 0 and 1 reserved for padding and unknown words.
type Vocab struct {
	Words      map[string]int `json:"words"`
	ClassNames []string       `json:"class_names"`
}

// BuildVocab assigns indices to every word that occurs at
// least minCount times in the documents.
func BuildVocab(docs [][][]string, minCount int) *Vocab {
	counts := map[string]int{}
	var order []string
	for _, doc := range docs {
		for _, sent := range doc {
			for _, word := range sent {
				if counts[word] == 0 {
					order = append(order, word)
				}
				counts[word]++
			}
		}
	}
	v := &Vocab{Words: map[string]int{}}
	for _, word := range order {
		if counts[word] >= minCount {
			v.Words[word] = len(v.Words) + 2
		}
	}
	return v
}

// Size returns the number of embedding rows the
// vocabulary needs, including the reserved indices.
func (v *Vocab) Size() int {
	return len(v.Words) + 2
}

// Index returns the index for a word, or UnkIndex if the
// word is not in the vocabulary.
func (v *Vocab) Index(word string) int {
	if idx, ok := v.Words[word]; ok {
		return idx
	}
	return UnkIndex
}

// Encode numericalizes a tokenized document.
func (v *Vocab) Encode(doc [][]string) [][]int {
	res := make([][]int, len(doc))
	for i, sent := range doc {
		row := make([]int, len(sent))
		for j, word := range sent {
			row[j] = v.Index(word)
		}
		res[i] = row
	}
	return res
}

// SaveVocab writes the vocabulary as JSON.
func SaveVocab(path string, v *Vocab) error {
	data, err := json.Marshal(v)
	if err != nil {
		return essentials.AddCtx("save vocab", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save vocab", err)
	}
	return nil
}

// LoadVocab reads a vocabulary written by SaveVocab.
func LoadVocab(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load vocab", err)
	}
	var v Vocab
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, essentials.AddCtx("load vocab", err)
	}
	return &v, nil
}
