package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	doc := Tokenize("The movie was great! Truly, a must-see.")
	expected := [][]string{
		{"the", "movie", "was", "great"},
		{"truly", "a", "must", "see"},
	}
	if !reflect.DeepEqual(doc, expected) {
		t.Errorf("expected %v but got %v", expected, doc)
	}
}

func TestVocabEncode(t *testing.T) {
	docs := [][][]string{
		{{"good", "movie"}},
		{{"bad", "movie"}},
	}
	v := BuildVocab(docs, 2)
	if v.Size() != 3 {
		t.Errorf("expected vocab size 3 but got %d", v.Size())
	}
	encoded := v.Encode([][]string{{"good", "movie"}})
	if len(encoded) != 1 || len(encoded[0]) != 2 {
		t.Fatalf("unexpected shape: %v", encoded)
	}
	if encoded[0][0] != UnkIndex {
		t.Errorf("expected unknown index for rare word, got %d", encoded[0][0])
	}
	if encoded[0][1] == UnkIndex || encoded[0][1] == PadIndex {
		t.Errorf("expected real index for frequent word, got %d", encoded[0][1])
	}
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tsv")
	contents := "pos\tGreat movie. Loved it!\nneg\tTerrible.\npos\tFine film.\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ds.ClassNames, []string{"pos", "neg"}) {
		t.Errorf("unexpected class names: %v", ds.ClassNames)
	}
	if !reflect.DeepEqual(ds.Classes, []int{0, 1, 0}) {
		t.Errorf("unexpected classes: %v", ds.Classes)
	}
	if len(ds.Documents) != 3 || len(ds.Documents[0]) != 2 {
		t.Errorf("unexpected documents: %v", ds.Documents)
	}
}

func TestPadDocument(t *testing.T) {
	doc := [][]int{{5, 3, 2}, {4}}
	expected := [][]int{{5, 3, 2}, {4, 0, 0}}
	if actual := padDocument(doc, 0); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}
