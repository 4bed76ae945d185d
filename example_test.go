package faceindex_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/faceindex"
	"github.com/hupe1980/faceindex/descriptor"
)

func ExampleIndexBuilder() {
	builder := faceindex.NewIndexBuilder()

	faceA := descriptor.MustNew(54, []float32{1, 0, 0, 0})
	faceB := descriptor.MustNew(54, []float32{0, 1, 0, 0})

	if err := builder.Append(faceA); err != nil {
		log.Fatal(err)
	}
	if err := builder.Append(faceB); err != nil {
		log.Fatal(err)
	}

	idx, err := builder.Build()
	if err != nil {
		log.Fatal(err)
	}

	results, err := idx.Search(faceA, 2)
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range results {
		fmt.Printf("index=%d similarity=%.2f\n", r.Index, r.Similarity)
	}
	// Output:
	// index=0 similarity=1.00
	// index=1 similarity=0.50
}

func ExampleLoadDenseIndex() {
	dir, err := os.MkdirTemp("", "faceindex")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	builder := faceindex.NewIndexBuilder()
	if err := builder.Append(descriptor.MustNew(56, []float32{0, 0, 1, 0})); err != nil {
		log.Fatal(err)
	}
	idx, err := builder.Build()
	if err != nil {
		log.Fatal(err)
	}

	path := filepath.Join(dir, "index.dense")
	if err := idx.Save(path, faceindex.IndexTypeDense); err != nil {
		log.Fatal(err)
	}

	loaded, err := faceindex.LoadDenseIndex(path)
	if err != nil {
		log.Fatal(err)
	}
	defer loaded.Close()

	fmt.Println(loaded.Version(), loaded.DescriptorsCount())
	// Output: 56 1
}
