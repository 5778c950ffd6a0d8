package executor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/parser"
)

func benchExecutor(b *testing.B) *Executor {
	b.Helper()
	var doc strings.Builder
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&doc, "line %d the quick brown fox jumps over the lazy dog word%d\n", i, i%97)
	}
	c := catalog.New(64<<20, 1, nil)
	if _, _, err := c.Load("bench", strings.NewReader(doc.String())); err != nil {
		b.Fatal(err)
	}
	return New(c, 100, nil)
}

func BenchmarkExecute(b *testing.B) {
	e := benchExecutor(b)
	queries := []struct{ op, q string }{
		{"count", "fox"},
		{"phrase", "quick brown fox"},
		{"prefix", "wor"},
		{"all", "lazy dog"},
		{"any", "fox missing"},
	}
	for _, q := range queries {
		plan, err := parser.Parse(q.op, q.q)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(q.op, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := e.Execute(context.Background(), "bench", plan, 0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExecuteParallel(b *testing.B) {
	e := benchExecutor(b)
	plan, err := parser.Parse("phrase", "lazy dog")
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := e.Execute(context.Background(), "bench", plan, 0); err != nil {
				b.Fatal(err)
			}
		}
	})
}
