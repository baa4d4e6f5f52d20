package corpus

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"metar_parser/internal/metar"
	"metar_parser/internal/tokens"
)

// Result is the outcome of decoding one report.
type Result struct {
	Report  Report
	Decoded *tokens.Report    // nil on failure.
	Err     *metar.ParseError // nil on success.
}

// Failure is a report that did not decode.
type Failure struct {
	Report Report
	Err    *metar.ParseError
}

// Summary totals a validation run. Results and Failures keep input order.
type Summary struct {
	Total    int
	Parsed   int
	Failed   int
	Failures []Failure
	Results  []Result
}

// Validate decodes every report using up to workers goroutines. A report that
// fails to decode is recorded and does not stop the run; only cancellation of
// ctx does.
func Validate(ctx context.Context, reports []Report, workers int) (*Summary, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(reports))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, rep := range reports {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := Result{Report: rep}
			decoded, err := metar.Parse(rep.Text)
			if err != nil {
				var pe *metar.ParseError
				if !errors.As(err, &pe) {
					return err
				}
				res.Err = pe
			}
			res.Decoded = decoded
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &Summary{Total: len(reports), Results: results}
	for _, res := range results {
		if res.Err != nil {
			s.Failed++
			s.Failures = append(s.Failures, Failure{Report: res.Report, Err: res.Err})
			continue
		}
		s.Parsed++
	}
	return s, nil
}

// Rate is the fraction of reports that decoded, or 1 for an empty run.
func (s *Summary) Rate() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Parsed) / float64(s.Total)
}

// ByExpected counts failures by each label expected at the failure offset.
func (s *Summary) ByExpected() map[string]int {
	counts := make(map[string]int)
	for _, f := range s.Failures {
		for _, label := range f.Err.Expected {
			counts[label]++
		}
	}
	return counts
}
