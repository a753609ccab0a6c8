// Package benchmark provides performance benchmarks for RegMesh.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run with specific cluster sizes:
//
//	go test -bench=BenchmarkSmartReload -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
