package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/monument-cli/internal/config"
	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/store"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Match.MapProvider = config.DistanceConfig{HighM: 100, MediumM: 500}
	c.Match.PointsOfInterest = config.DistanceConfig{HighM: 100, MediumM: 500}
	c.Match.Encyclopedia = config.DistanceConfig{HighM: 100, MediumM: 2000}
	c.Match.HighSimilarity = 0.92
	c.Match.MediumSimilarity = 0.80
	c.Match.TieToleranceM = 1
	c.Match.RedirectToleranceM = 2000
	c.Adjudication.Provider = "none"
	c.Batch.Concurrency = 2
	return c
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func seededStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "monuments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	require.NoError(t, st.SaveMergedRecords(context.Background(), []model.BaseRecord{
		{
			ID:          "eiffel",
			Name:        "Tour Eiffel",
			URL:         "https://monuments.example/eiffel",
			Coordinates: &model.Coordinates{Lat: 48.8584, Lon: 2.2945},
			Category:    "Museum",
		},
		{
			ID:          "arc",
			Name:        "Arc de Triomphe",
			URL:         "https://monuments.example/arc",
			Coordinates: &model.Coordinates{Lat: 48.8738, Lon: 2.2950},
		},
	}))
	return st
}

const mapCSV = `base_id,source_id,name,lat,lon,url,address,category,rating,votes
eiffel,gm-1,Eiffel Tower,48.8583,2.2944,https://maps.example/gm-1,"Champ de Mars, 5 Av. Anatole France",Church,4.7,1200
`

const encyclopediaJSON = `[
  {
    "source_id": "Arc_de_Triomphe_de_l'Étoile",
    "base_id": "arc",
    "name": "Arc de Triomphe de l'Étoile",
    "coordinates": {"lat": 48.9188, "lon": 2.2950},
    "url": "https://en.wikipedia.org/wiki/Arc_de_Triomphe",
    "description": "The Arc de Triomphe de l'Étoile is one of the most famous monuments in Paris.",
    "query": "Arc de Triomphe"
  }
]`

func recordByID(t *testing.T, recs []model.BaseRecord, id string) model.BaseRecord {
	t.Helper()
	for _, r := range recs {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("record %s not found", id)
	return model.BaseRecord{}
}

func TestRunReconcile_StaticVerdicts(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	cfg.Adjudication.Provider = "static"
	cfg.Adjudication.VerdictsFile = writeTestFile(t, dir, "verdicts.yaml", `
verdicts:
  "arc|encyclopedia|Arc_de_Triomphe_de_l'Étoile":
    same_entity: true
    justification: same arch
`)

	st := seededStore(t)
	ctx := context.Background()
	opts := reconcileOptions{
		mapFile:          writeTestFile(t, dir, "map.csv", mapCSV),
		encyclopediaFile: writeTestFile(t, dir, "wiki.json", encyclopediaJSON),
		redirectLog:      writeTestFile(t, dir, "redirects.log", "Arc de Triomphe -> Arc de Triomphe de l'Étoile\n"),
		summaryOut:       filepath.Join(dir, "summary.json"),
	}

	var out bytes.Buffer
	res, err := runReconcile(ctx, st, opts, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Escalated)
	assert.Zero(t, res.Errors)
	assert.Contains(t, out.String(), "map_provider")
	assert.Contains(t, out.String(), res.RunID)

	recs, err := st.LoadBaseRecords(ctx)
	require.NoError(t, err)

	eiffel := recordByID(t, recs, "eiffel")
	assert.Equal(t, "Champ de Mars, 5 Av. Anatole France", eiffel.Address)
	assert.Equal(t, "Museum", eiffel.Category)
	assert.InDelta(t, 48.8583, eiffel.Coordinates.Lat, 1e-9)
	require.Contains(t, eiffel.Metrics, model.SourceMapProvider)
	assert.Equal(t, 1200, *eiffel.Metrics[model.SourceMapProvider].Votes)

	arc := recordByID(t, recs, "arc")
	assert.Contains(t, arc.Description, "Arc de Triomphe de l'Étoile")
	assert.Equal(t, model.TierMedium, arc.Provenance[model.FieldDescription].Tier)

	v, err := st.GetVerdict(ctx, model.DecisionKey{
		RecordID:    "arc",
		Source:      model.SourceEncyclopedia,
		CandidateID: "Arc_de_Triomphe_de_l'Étoile",
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.SameEntity)

	tbl, err := st.QueryView(ctx, "view_provenance_summary")
	require.NoError(t, err)
	assert.NotEmpty(t, tbl.Rows)

	data, err := os.ReadFile(opts.summaryOut)
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, res.RunID, summary["run_id"])
}

func TestRunReconcile_RedirectWithoutAdjudicationStaysAmbiguous(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	st := seededStore(t)
	ctx := context.Background()

	res, err := runReconcile(ctx, st, reconcileOptions{
		encyclopediaFile: writeTestFile(t, dir, "wiki.json", encyclopediaJSON),
		redirectLog:      writeTestFile(t, dir, "redirects.log", "Arc de Triomphe -> Arc de Triomphe de l'Étoile\n"),
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Counts[model.SourceEncyclopedia].Ambiguous)

	recs, err := st.LoadBaseRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, recordByID(t, recs, "arc").Description)
}

func TestRunReconcile_DryRun(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	st := seededStore(t)
	ctx := context.Background()

	res, err := runReconcile(ctx, st, reconcileOptions{
		mapFile: writeTestFile(t, dir, "map.csv", mapCSV),
		dryRun:  true,
	}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts[model.SourceMapProvider].Matched)

	recs, err := st.LoadBaseRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, recordByID(t, recs, "eiffel").Address)
}

func TestRunReconcile_NoRecords(t *testing.T) {
	cfg = testConfig()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	_, err = runReconcile(context.Background(), st, reconcileOptions{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run import first")
}

func TestRunReconcile_BadCandidateFile(t *testing.T) {
	cfg = testConfig()
	st := seededStore(t)

	_, err := runReconcile(context.Background(), st, reconcileOptions{
		mapFile: writeTestFile(t, t.TempDir(), "map.csv", "source_id,name\ngm-1,Eiffel Tower\n"),
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map_provider")
}

func TestFlattenCandidates(t *testing.T) {
	got := flattenCandidates(map[string][]model.CandidateRecord{
		"b": {{SourceID: "b1"}},
		"a": {{SourceID: "a1"}, {SourceID: "a2"}},
	})
	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.SourceID
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, ids)
}
