// Package faceindex provides nearest-neighbor indexes over face descriptors:
// fixed-length feature vectors extracted by a face recognition model and
// tagged with the model version that produced them.
//
// An IndexBuilder accumulates descriptors and compiles them into a
// DynamicIndex, which supports search, further appends and removal, and can
// be persisted in two formats: the dynamic format, which preserves
// mutability across a save/load cycle, and the dense format, a compact
// read-only layout that loads via memory mapping. A file saved in the dense
// format opens as a DenseIndex.
//
// All descriptors in one index share a single model version. The version is
// bound by the first accepted descriptor (or up front via WithVersion) and
// every later append or search query must match it; descriptors from
// different model versions are not comparable.
//
// Basic usage:
//
//	builder := faceindex.NewIndexBuilder()
//	if err := builder.Append(d); err != nil { ... }
//	idx, err := builder.Build()
//	if err != nil { ... }
//	results, err := idx.Search(query, 3)
package faceindex
