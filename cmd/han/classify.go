package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/notnami/han"
	"github.com/spf13/cobra"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a document with a trained model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCommandConfig(cmd)
			if err != nil {
				return err
			}
			return runClassify(cfg, strings.Join(args, " "))
		},
	}
}

func runClassify(cfg *Config, text string) error {
	vocab, err := LoadVocab(cfg.VocabPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		return essentials.AddCtx("load model", err)
	}
	var classifier *han.DocClassifier
	if err := serializer.DeserializeAny(data, &classifier); err != nil {
		return essentials.AddCtx("load model", err)
	}

	doc := vocab.Encode(Tokenize(text))
	if len(doc) == 0 {
		return errors.New("classify: no words in input")
	}
	res := classifier.Apply([][][]int{padDocument(doc, classifier.Padding)})

	class := anyvec.MaxIndex(res.Logits.Output())
	if class < len(vocab.ClassNames) {
		fmt.Println("class:", vocab.ClassNames[class])
	} else {
		fmt.Println("class:", class)
	}

	sentWeights := res.SentWeights.Data().([]float32)
	for i, sent := range doc {
		fmt.Printf("sentence %d (%d words): weight=%.4f\n",
			i, len(sent), sentWeights[i])
	}
	return nil
}

// padDocument pads a ragged document to a rectangular
// sentence/word grid.
func padDocument(doc [][]int, padding int) [][]int {
	var maxWords int
	for _, sent := range doc {
		if len(sent) > maxWords {
			maxWords = len(sent)
		}
	}
	res := make([][]int, len(doc))
	for i, sent := range doc {
		row := make([]int, maxWords)
		for j := range row {
			row[j] = padding
		}
		copy(row, sent)
		res[i] = row
	}
	return res
}
