package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "answerctl",
		Usage: "Index passages and query the answer engine from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file before reading configuration",
				Value: ".env",
			},
		},
		Before: loadEnv,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Load passages from txt, csv, xlsx or pdf files and index them",
				ArgsUsage: "FILE...",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source label stored with every passage (defaults to the file name)",
					},
					&cli.StringFlag{
						Name:  "column",
						Usage: "csv/xlsx header holding passage text",
						Value: "context",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of passages to embed per request",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the indexed passages",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Passages to retrieve from each search",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full answer as JSON",
					},
					&cli.BoolFlag{
						Name:  "passages",
						Usage: "Also print the retrieved passages",
					},
				},
			},
			{
				Name:      "similarity",
				Usage:     "Print the similarity report between two texts",
				ArgsUsage: "TEXT_A TEXT_B",
				Action:    similarityCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the report as JSON",
					},
				},
			},
			{
				Name:   "validate",
				Usage:  "Validate an answer for a question against context passages",
				Action: validateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "answer",
						Aliases:  []string{"a"},
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "context",
						Aliases: []string{"c"},
						Usage:   "Context passage, repeatable",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the report as JSON",
					},
				},
			},
		},
	}
}
