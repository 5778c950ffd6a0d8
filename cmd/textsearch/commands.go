package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/parser"
)

// openDocument indexes the --file document into a one-entry catalog.
func openDocument(c *cli.Context) (*catalog.Catalog, *indexer.Engine, error) {
	docs := catalog.New(c.Int64("max-size"), 1, nil)
	engine, _, err := docs.LoadFile(c.String("file"))
	if err != nil {
		return nil, nil, err
	}
	return docs, engine, nil
}

func queryAction(c *cli.Context, op parser.Operation) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: textsearch --file FILE %s %s", op, c.Command.ArgsUsage)
	}
	plan, err := parser.Parse(string(op), strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}
	docs, engine, err := openDocument(c)
	if err != nil {
		return err
	}
	exec := executor.New(docs, math.MaxInt, nil)
	result, err := exec.Execute(c.Context, engine.Name(), plan, c.Int("limit"))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c, result)
	}

	w := c.App.Writer
	switch {
	case plan.Operation == parser.OpCount:
		fmt.Fprintln(w, result.TotalHits)
	case result.Positions != nil:
		for _, p := range result.Positions {
			fmt.Fprintf(w, "(%d, %d)\n", p.Line, p.Column)
		}
	default:
		for _, line := range result.Lines {
			fmt.Fprintln(w, line)
		}
	}
	if result.Truncated {
		fmt.Fprintf(c.App.ErrWriter, "showing %d of %d results\n", result.Count, result.TotalHits)
	}
	return nil
}

func wordsCommand(c *cli.Context) error {
	if c.NArg() > 1 {
		return errors.New("usage: textsearch --file FILE words [PREFIX]")
	}
	prefix := ""
	if c.NArg() == 1 {
		terms := tokenizer.Terms(c.Args().First())
		if len(terms) != 1 {
			return fmt.Errorf("prefix %q must be a single word", c.Args().First())
		}
		prefix = terms[0]
	}
	_, engine, err := openDocument(c)
	if err != nil {
		return err
	}
	words := engine.Words(prefix)
	if c.Bool("json") {
		return printJSON(c, words)
	}
	for _, wc := range words {
		fmt.Fprintf(c.App.Writer, "%s\t%d\n", wc.Word, wc.Count)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	_, engine, err := openDocument(c)
	if err != nil {
		return err
	}
	stats := engine.Stats()
	if c.Bool("json") {
		return printJSON(c, stats)
	}
	w := c.App.Writer
	fmt.Fprintf(w, "document:     %s\n", stats.Name)
	fmt.Fprintf(w, "lines:        %d\n", stats.Lines)
	fmt.Fprintf(w, "tokens:       %d\n", stats.Tokens)
	fmt.Fprintf(w, "unique words: %d\n", stats.UniqueWords)
	fmt.Fprintf(w, "trie nodes:   %d\n", stats.Nodes)
	fmt.Fprintf(w, "size:         %d bytes\n", stats.SizeBytes)
	fmt.Fprintf(w, "fingerprint:  %s\n", stats.Fingerprint)
	fmt.Fprintf(w, "built in:     %s\n", stats.BuildDuration)
	return nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
