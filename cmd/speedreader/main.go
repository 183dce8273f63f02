// Package main provides the command-line interface for SpeedReader.
// It reduces an HTML file (or standard input) to its article content
// and prints the result as HTML, plain text, or JSON. The html format
// runs the engine selected for the given URL; the text and json formats
// always run the heuristic extractor.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-speedreader/speedreader"
)

// OutputFormat represents the supported output formats.
type OutputFormat string

const (
	FormatHTML OutputFormat = "html"
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func main() {
	inputFile := flag.String("input", "-", "Input HTML file path ('-' for stdin)")
	outputFile := flag.String("output", "", "Output file path (default: stdout)")
	articleURL := flag.String("url", "", "URL the document was served from (required)")
	formatStr := flag.String("format", "html", "Output format: html, text, or json")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "SpeedReader - Reduce web article HTML to readable content\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -url https://www.cnet.com/news/story/ -input page.html\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  cat page.html | %s -url https://example.org/article -format json\n", os.Args[0])
	}
	flag.Parse()

	if *verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if *articleURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -url is required")
		flag.Usage()
		os.Exit(1)
	}

	var body []byte
	var err error
	if *inputFile == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(*inputFile)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	sr, err := speedreader.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	switch OutputFormat(*formatStr) {
	case FormatHTML:
		content, err := reduce(sr, *articleURL, body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		out.Write(content)

	case FormatText:
		product, err := sr.Extract(*articleURL, body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintln(out, product.Text)

	case FormatJSON:
		product, err := sr.Extract(*articleURL, body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			URL       string `json:"url"`
			Engine    string `json:"engine"`
			Title     string `json:"title,omitempty"`
			Byline    string `json:"byline,omitempty"`
			Published string `json:"published,omitempty"`
			Content   string `json:"content"`
			Text      string `json:"text"`
		}{
			URL:       *articleURL,
			Engine:    sr.SelectEngine(*articleURL).String(),
			Title:     product.Title,
			Byline:    product.Byline,
			Published: product.Published,
			Content:   product.Content,
			Text:      product.Text,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", *formatStr)
		os.Exit(1)
	}
}

// reduce runs the engine selected for url over body and returns the
// reduced bytes.
func reduce(sr *speedreader.SpeedReader, url string, body []byte) ([]byte, error) {
	var out []byte
	sess, err := sr.NewSession(url, func(chunk []byte) {
		out = append(out, chunk...)
	}, nil)
	if err != nil {
		return nil, err
	}
	if err := sess.Write(body); err != nil {
		return nil, err
	}
	if err := sess.End(); err != nil {
		return nil, err
	}
	return out, nil
}
