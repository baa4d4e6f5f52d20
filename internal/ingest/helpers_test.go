package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"metar_parser/internal/metar"
	"metar_parser/internal/tokens"
)

func mustParse(t *testing.T, s string) *tokens.Report {
	t.Helper()
	r, err := metar.Parse(s)
	require.NoError(t, err)
	return r
}
