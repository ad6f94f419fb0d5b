// Package testing provides a reusable conformance test suite for
// implementations of the grid.GridStore interface. Storage backends call
// RunGridStoreTests from their own test files to verify the optimistic
// concurrency contract, history preservation, and the spatial aggregations.
package testing
