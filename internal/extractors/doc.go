// Package extractors converts raw file blobs into plain text.
//
// Each format lives in its own subpackage implementing driven.Extractor;
// the Engine dispatches by file extension and additionally handles
// container (archive) files, which are the highest-risk input: extraction
// is bounded by a cumulative decompressed-size ceiling evaluated
// incrementally and a fixed nesting depth, so a decompression bomb never
// completes and unbounded recursion never starts.
package extractors
