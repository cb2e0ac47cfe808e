package main

import (
	"log"
	"os"

	"github.com/notnami/han"
	"github.com/notnami/han/hanclass"
	"github.com/spf13/cobra"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"
	"github.com/unixpickle/serializer"
)

func trainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train <data-file>",
		Short: "Train a classifier on labeled documents",
		Long: `Train a hierarchical attention classifier on a file with
one document per line, formatted as "label<TAB>text".
Training runs until interrupted with ctrl+c, then the
model and vocabulary are saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCommandConfig(cmd)
			if err != nil {
				return err
			}
			return runTrain(cfg, args[0])
		},
	}
}

func runTrain(cfg *Config, dataPath string) error {
	log.Println("Loading dataset...")
	ds, err := LoadDataset(dataPath)
	if err != nil {
		return err
	}
	vocab := BuildVocab(ds.Documents, cfg.MinCount)
	vocab.ClassNames = ds.ClassNames
	log.Printf("Loaded %d documents, %d classes, %d words.",
		len(ds.Documents), len(ds.ClassNames), len(vocab.Words))

	samples := make(hanclass.SliceSampleList, len(ds.Documents))
	for i, doc := range ds.Documents {
		samples[i] = &hanclass.Sample{
			Document: vocab.Encode(doc),
			Class:    ds.Classes[i],
		}
	}

	creator := anyvec32.CurrentCreator()
	classifier := han.NewDocClassifier(creator, vocab.Size(), cfg.Embedding,
		cfg.Hidden, cfg.Attention, len(ds.ClassNames), PadIndex)
	t := &hanclass.Trainer{
		Classifier: classifier,
		Cost:       anynet.DotCost{},
		Params:     classifier.Parameters(),
		Average:    true,
	}

	var iterNum int
	s := &anysgd.SGD{
		Fetcher:     t,
		Gradienter:  t,
		Transformer: &anysgd.Adam{},
		Samples:     samples,
		Rater:       anysgd.ConstRater(cfg.StepSize),
		StatusFunc: func(b anysgd.Batch) {
			log.Printf("iter %d: cost=%v", iterNum, t.LastCost)
			iterNum++
		},
		BatchSize: cfg.BatchSize,
	}

	log.Println("Press ctrl+c once to stop...")
	s.Run(rip.NewRIP().Chan())

	if err := SaveVocab(cfg.VocabPath, vocab); err != nil {
		return err
	}
	data, err := serializer.SerializeAny(classifier)
	if err != nil {
		return essentials.AddCtx("save model", err)
	}
	if err := os.WriteFile(cfg.ModelPath, data, 0644); err != nil {
		return essentials.AddCtx("save model", err)
	}
	log.Printf("Saved model to %s and vocabulary to %s.",
		cfg.ModelPath, cfg.VocabPath)
	return nil
}
