// Command textsearch indexes a single text file and answers positional
// queries against it without any of the service infrastructure.
//
// Usage:
//
//	textsearch --file doc.txt count WORD
//	textsearch --file doc.txt phrase WORDS...
//	textsearch --file doc.txt prefix PREFIX
//	textsearch --file doc.txt all WORDS...
//	textsearch --file doc.txt any WORDS...
//	textsearch --file doc.txt words [PREFIX]
//	textsearch --file doc.txt stats
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/logger"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "textsearch: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "textsearch",
		Usage:     "Positional word and phrase search over a text file",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Text file to index",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum positions or lines to print (0 = all)",
			},
			&cli.Int64Flag{
				Name:  "max-size",
				Usage: "Largest file to index, in bytes",
				Value: 256 << 20,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level for diagnostics on stderr",
				Value: "warn",
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetupWriter(stderr, c.String("log-level"), "text")
			return nil
		},
		Commands: []*cli.Command{
			queryCommand(parser.OpCount, "WORD", "Count occurrences of a word"),
			queryCommand(parser.OpPhrase, "WORDS...", "Find where a sequence of words occurs"),
			queryCommand(parser.OpPrefix, "PREFIX", "Find words starting with a prefix"),
			queryCommand(parser.OpAll, "WORDS...", "Find lines containing every word"),
			queryCommand(parser.OpAny, "WORDS...", "Find lines containing any of the words"),
			{
				Name:      "words",
				Usage:     "List distinct words with their counts",
				ArgsUsage: "[PREFIX]",
				Action:    wordsCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show index statistics",
				Action: statsCommand,
			},
		},
	}
}

func queryCommand(op parser.Operation, argsUsage, usage string) *cli.Command {
	return &cli.Command{
		Name:      string(op),
		Usage:     usage,
		ArgsUsage: argsUsage,
		Action: func(c *cli.Context) error {
			return queryAction(c, op)
		},
	}
}
