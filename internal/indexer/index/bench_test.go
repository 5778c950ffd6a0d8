package index

import (
	"testing"
)

// BenchmarkAdd measures per-token insert throughput.
func BenchmarkAdd(b *testing.B) {
	doc := corpus(7, 1000, 12)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr := New()
		for ln, line := range doc {
			for col, w := range line {
				_ = tr.Add(w, ln+1, col+1)
			}
		}
	}
}

// BenchmarkCount measures single-word lookup latency.
func BenchmarkCount(b *testing.B) {
	tr := build(b, corpus(7, 5000, 12))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tr.Count("band")
	}
}

// BenchmarkFindPrefixParallel measures concurrent read throughput.
func BenchmarkFindPrefixParallel(b *testing.B) {
	tr := build(b, corpus(7, 5000, 12))
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = tr.FindPrefix("ca")
		}
	})
}

// BenchmarkWordsOnLine measures the rarest-word driven AND query.
func BenchmarkWordsOnLine(b *testing.B) {
	tr := build(b, corpus(7, 5000, 12))
	words := []string{"cant", "one", "ban"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tr.WordsOnLine(words)
	}
}
