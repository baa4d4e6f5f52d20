package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"metar_parser/internal/metar"
)

func openTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "observations.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func observe(t *testing.T, raw string, received time.Time) Observation {
	t.Helper()
	r, err := metar.Parse(raw)
	o, oerr := NewObservation(raw, r, err, received)
	if oerr != nil {
		t.Fatal(oerr)
	}
	o.Source = "test"
	return o
}

func TestSQLiteInsertAndQuery(t *testing.T) {
	db := openTestSQLite(t)
	received := time.Date(2024, 6, 26, 16, 0, 0, 0, time.UTC)

	reports := []string{
		"KSEA 261453Z 18004KT 10SM FEW025 14/09 A3002",
		"KSEA 261553Z 19006KT 10SM SCT030 15/09 A3001",
		"EPSY 261530Z 19002KT 2000 MIFG",
		"KS 261453Z",
	}
	for _, raw := range reports {
		if _, err := db.Insert(observe(t, raw, received)); err != nil {
			t.Fatalf("insert %q: %v", raw, err)
		}
	}

	all, err := db.Query(QueryParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(reports) {
		t.Fatalf("got %d observations, want %d", len(all), len(reports))
	}

	seattle, err := db.Query(QueryParams{Station: "KSEA"})
	if err != nil {
		t.Fatal(err)
	}
	if len(seattle) != 2 || seattle[0].Temperature == nil || *seattle[0].Temperature != 14 {
		t.Errorf("KSEA = %+v", seattle)
	}

	failed := true
	failures, err := db.Query(QueryParams{Failed: &failed})
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].ErrorOffset != 2 || len(failures[0].Expected) != 2 {
		t.Errorf("failures = %+v", failures)
	}

	byLabel, err := db.Query(QueryParams{Expected: "letter"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byLabel) != 1 {
		t.Errorf("expected-label query = %+v", byLabel)
	}

	fts, err := db.Query(QueryParams{FullText: "MIFG"})
	if err != nil {
		t.Fatal(err)
	}
	if len(fts) != 1 || fts[0].Station != "EPSY" {
		t.Errorf("full text = %+v", fts)
	}
}

func TestSQLiteLatest(t *testing.T) {
	db := openTestSQLite(t)
	received := time.Date(2024, 6, 26, 16, 0, 0, 0, time.UTC)

	obs := []Observation{
		observe(t, "KSEA 261553Z 19006KT 10SM SCT030 15/09 A3001", received),
		observe(t, "KSEA 261453Z 18004KT 10SM FEW025 14/09 A3002", received),
		observe(t, "KSEA 26????", received),
	}
	if err := db.InsertBatch(obs); err != nil {
		t.Fatal(err)
	}

	latest, err := db.Latest("KSEA")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != obs[0].ID {
		t.Errorf("latest = %+v, want %v", latest, obs[0].ID)
	}

	none, err := db.Latest("ZZZZ")
	if err != nil || none != nil {
		t.Errorf("Latest(ZZZZ) = %+v, %v", none, err)
	}
}

func TestSQLiteStats(t *testing.T) {
	db := openTestSQLite(t)
	received := time.Now()
	for _, raw := range []string{"KSEA 261453Z 18004KT 10SM", "KS 261453Z", "EPSY 2615"} {
		if _, err := db.Insert(observe(t, raw, received)); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.Parsed != 1 || stats.Failed != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TopExpected["letter"] != 1 {
		t.Errorf("top expected = %v", stats.TopExpected)
	}

	stations, err := db.Distinct("station")
	if err != nil {
		t.Fatal(err)
	}
	if len(stations) != 2 {
		t.Errorf("stations = %v", stations)
	}
	if _, err := db.Distinct("raw_text; DROP TABLE observations"); err == nil {
		t.Error("expected invalid column error")
	}
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	// Schema creation and migrations run again without error.
	db, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = db.Close()
}

func TestSQLiteGet(t *testing.T) {
	db := openTestSQLite(t)
	o := observe(t, "KS 261453Z", time.Date(2024, 6, 26, 16, 0, 0, 0, time.UTC))
	if _, err := db.Insert(o); err != nil {
		t.Fatal(err)
	}

	got, err := db.Get(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.RawText != "KS 261453Z" || got.Parsed || got.ErrorOffset != 2 {
		t.Errorf("Get = %+v", got)
	}

	missing, err := db.Get(uuid.New())
	if err != nil || missing != nil {
		t.Errorf("Get(unknown) = %+v, %v", missing, err)
	}
}
