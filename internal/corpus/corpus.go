// Package corpus reads archives of raw reports and validates them against the
// decoder in bulk.
package corpus

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Report is one raw report and where it came from.
type Report struct {
	Source string // Archive member or file name.
	Line   int    // 1-based line within Source.
	Text   string
}

// LineOptions controls ReadLines.
type LineOptions struct {
	Gzip       bool
	SkipPrefix int // Bytes dropped from the start of every line, such as a timestamp column.
	Source     string
}

// ReadLines reads one report per line. Blank lines are skipped.
func ReadLines(r io.Reader, opts LineOptions) ([]Report, error) {
	if opts.Gzip {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var reports []Report
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) < opts.SkipPrefix {
			continue
		}
		line = line[opts.SkipPrefix:]
		if strings.TrimSpace(line) == "" {
			continue
		}
		reports = append(reports, Report{Source: opts.Source, Line: n, Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read line %d: %w", n+1, err)
	}
	return reports, nil
}

// ReadStations reads a gzip-compressed tar archive holding one file per
// station, each with a timestamp line followed by the station's report.
// Members without a report line are skipped.
func ReadStations(r io.Reader) ([]Report, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()

	var reports []Report
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		lines := strings.Split(string(body), "\n")
		if len(lines) < 2 {
			continue
		}
		text := strings.TrimRight(lines[1], "\r ")
		if text == "" {
			continue
		}
		reports = append(reports, Report{Source: hdr.Name, Line: 2, Text: text})
	}
	return reports, nil
}

// Open reads an archive from disk, choosing the reader from the file name:
// .tar.gz and .tgz are station archives, .gz is a compressed line file, and
// anything else is a plain line file.
func Open(path string, skipPrefix int) ([]Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return ReadStations(f)
	case strings.HasSuffix(name, ".gz"):
		return ReadLines(f, LineOptions{Gzip: true, SkipPrefix: skipPrefix, Source: name})
	default:
		return ReadLines(f, LineOptions{SkipPrefix: skipPrefix, Source: name})
	}
}
