// Package main provides metar-validate, which decodes archives of reports in
// bulk and summarises what failed.
//
// Usage:
//
//	metar-validate [options] ARCHIVE...
//
// Archives ending in .tar.gz or .tgz are read as one file per station with the
// report on the second line; .gz files and anything else are read as one
// report per line.
//
// Options:
//
//	-skip N       Bytes to drop from the start of each line (13 for timestamped archives)
//	-workers N    Parallel decoders (default: number of CPUs)
//	-show N       Failures to print with their diagnostics (default: 10)
//	-db PATH      Record every report in this SQLite database
//	-source NAME  Source recorded with each report (default: archive file name)
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"metar_parser/internal/corpus"
	"metar_parser/internal/metar"
	"metar_parser/internal/storage"
)

func main() {
	skip := flag.Int("skip", 0, "Bytes to drop from the start of each line")
	workers := flag.Int("workers", runtime.NumCPU(), "Parallel decoders")
	show := flag.Int("show", 10, "Failures to print with their diagnostics")
	dbPath := flag.String("db", "", "Record every report in this SQLite database")
	source := flag.String("source", "", "Source recorded with each report")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: metar-validate [options] ARCHIVE...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var db *storage.SQLiteDB
	if *dbPath != "" {
		var err error
		db, err = storage.OpenSQLite(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	failed := false
	for _, path := range flag.Args() {
		start := time.Now()
		reports, err := corpus.Open(path, *skip)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			os.Exit(1)
		}

		summary, err := corpus.Validate(ctx, reports, *workers)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error validating %s: %v\n", path, err)
			os.Exit(1)
		}
		printSummary(os.Stdout, path, summary, *show, time.Since(start))

		if db != nil {
			src := *source
			if src == "" {
				src = filepath.Base(path)
			}
			if err := record(db, summary, src, time.Now()); err != nil {
				fmt.Fprintf(os.Stderr, "Error recording %s: %v\n", path, err)
				os.Exit(1)
			}
		}
		if summary.Failed > 0 {
			failed = true
		}
	}

	if db != nil {
		stats, err := db.GetStats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading database stats: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nDatabase %s: %s reports, %s decoded, %s failed\n", *dbPath,
			humanize.Comma(int64(stats.Total)), humanize.Comma(int64(stats.Parsed)), humanize.Comma(int64(stats.Failed)))
	}

	if failed {
		os.Exit(1)
	}
}

// printSummary writes the totals for one archive, the most common labels
// expected at failures, and the first few failures in full.
func printSummary(w io.Writer, name string, s *corpus.Summary, show int, elapsed time.Duration) {
	fmt.Fprintf(w, "%s: %s reports, %s decoded, %s failed (%s%%) in %s\n", name,
		humanize.Comma(int64(s.Total)), humanize.Comma(int64(s.Parsed)), humanize.Comma(int64(s.Failed)),
		humanize.FtoaWithDigits(100*s.Rate(), 2), elapsed.Round(time.Millisecond))

	if s.Failed == 0 {
		return
	}

	counts := s.ByExpected()
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	fmt.Fprintln(w, "  expected at failure:")
	for _, l := range labels[:min(len(labels), 10)] {
		fmt.Fprintf(w, "    %-24s %s\n", l, humanize.Comma(int64(counts[l])))
	}

	for _, f := range s.Failures[:min(len(s.Failures), show)] {
		fmt.Fprintf(w, "\n%s:%d\n", f.Report.Source, f.Report.Line)
		fmt.Fprint(w, metar.Annotate(f.Report.Text, f.Err))
	}
}

// record stores every result of a run in the SQLite database.
func record(db *storage.SQLiteDB, s *corpus.Summary, source string, received time.Time) error {
	obs := make([]storage.Observation, 0, len(s.Results))
	for _, res := range s.Results {
		var parseErr error
		if res.Err != nil {
			parseErr = res.Err
		}
		o, err := storage.NewObservation(res.Report.Text, res.Decoded, parseErr, received)
		if err != nil {
			return err
		}
		o.Source = source
		obs = append(obs, o)
	}
	return db.InsertBatch(obs)
}
