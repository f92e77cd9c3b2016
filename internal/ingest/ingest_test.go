package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/monument-cli/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectFormat(t *testing.T) {
	for path, want := range map[string]Format{"a.csv": FormatCSV, "b.JSON": FormatJSON, "c.xlsx": FormatXLSX} {
		got, err := DetectFormat(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := DetectFormat("d.parquet")
	assert.Error(t, err)
}

func TestLoadBaseRecords_CSV(t *testing.T) {
	path := writeFile(t, "monuments.csv", strings.Join([]string{
		"\ufeffID,Name,Aliases,Lat,Lon,City,Opening Hours,extra",
		"m1,Tour Eiffel,Eiffel Tower|Iron Lady,48.8584,2.2945,Paris,9:00-23:00,x",
		"m2,Pont du Gard,,,,Vers,,y",
	}, "\n"))

	recs, err := LoadBaseRecords(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "m1", recs[0].ID)
	assert.Equal(t, []string{"Eiffel Tower", "Iron Lady"}, recs[0].Aliases)
	require.NotNil(t, recs[0].Coordinates)
	assert.InDelta(t, 2.2945, recs[0].Coordinates.Lon, 1e-9)
	assert.Equal(t, "9:00-23:00", recs[0].OpeningHours)

	assert.Nil(t, recs[1].Coordinates)
	assert.Nil(t, recs[1].Aliases)
}

func TestLoadBaseRecords_DuplicateID(t *testing.T) {
	path := writeFile(t, "dup.csv", "id,name\nm1,A\nm1,B\n")
	_, err := LoadBaseRecords(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate id "m1"`)
}

func TestLoadBaseRecords_MissingID(t *testing.T) {
	path := writeFile(t, "noid.json", `[{"name":"A"}]`)
	_, err := LoadBaseRecords(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}

func TestLoadBaseRecords_JSON(t *testing.T) {
	path := writeFile(t, "monuments.json", `[
		{"id":"m1","name":"Louvre","coordinates":{"lat":48.8606,"lon":2.3376},"aliases":["Musée du Louvre"]},
		{"id":"m2","name":"Panthéon"}
	]`)
	recs, err := LoadBaseRecords(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Musée du Louvre", recs[0].Aliases[0])
	assert.Nil(t, recs[1].Coordinates)
}

func TestLoadCandidates_CSV(t *testing.T) {
	path := writeFile(t, "map.csv", strings.Join([]string{
		"base_id,source_id,name,lat,lon,website,rating,votes,redirected",
		"m1,g1,Eiffel Tower,48.8583,2.2944,https://www.toureiffel.paris,4.7,300000,",
		"m1,g2,Eiffel Tower Shop,,,,,,",
	}, "\n"))

	cands, err := LoadCandidates(context.Background(), path, model.SourceMapProvider)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	assert.Equal(t, model.SourceMapProvider, cands[0].Source)
	require.NotNil(t, cands[0].Metrics)
	assert.InDelta(t, 4.7, *cands[0].Metrics.Rating, 1e-9)
	assert.Equal(t, 300000, *cands[0].Metrics.Votes)
	assert.Nil(t, cands[0].Metrics.Checkins)

	assert.Nil(t, cands[1].Coordinates)
	assert.Nil(t, cands[1].Metrics)
	assert.Equal(t, "m1", cands[1].BaseID)
}

func TestLoadCandidates_Validation(t *testing.T) {
	path := writeFile(t, "bad.csv", "base_id,source_id,name\nm1,,Nameless\n")
	_, err := LoadCandidates(context.Background(), path, model.SourceMapProvider)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs base_id and source_id")

	_, err = LoadCandidates(context.Background(), path, model.SourcePrimary)
	assert.Error(t, err)
}

func TestLoadCandidates_JSONOverridesSource(t *testing.T) {
	path := writeFile(t, "wiki.json", `[{"source":"map_provider","source_id":"Eiffel_Tower","base_id":"m1","name":"Eiffel Tower","redirected":true,"query":"Tour Eiffel"}]`)
	cands, err := LoadCandidates(context.Background(), path, model.SourceEncyclopedia)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, model.SourceEncyclopedia, cands[0].Source)
	assert.True(t, cands[0].Redirected)
}

func TestLoadCandidates_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("poi")
	require.NoError(t, err)
	for _, cells := range [][]string{
		{"base_id", "source_id", "name", "lat", "lon", "checkins"},
		{"m1", "fsq-1", "Tour Eiffel", "48.8584", "2.2945", "5000"},
	} {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "poi.xlsx")
	require.NoError(t, f.Save(path))

	cands, err := LoadCandidates(context.Background(), path, model.SourcePointsOfInterest)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "fsq-1", cands[0].SourceID)
	require.NotNil(t, cands[0].Metrics)
	assert.Equal(t, 5000, *cands[0].Metrics.Checkins)
	require.NotNil(t, cands[0].Coordinates)
}

func TestDecodeJSONArray_NotArray(t *testing.T) {
	itemCh, errCh := DecodeJSONArray[model.BaseRecord](context.Background(), strings.NewReader(`{"id":"m1"}`))
	for range itemCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected '['")
}

func TestDecodeJSONArray_Empty(t *testing.T) {
	itemCh, errCh := DecodeJSONArray[model.BaseRecord](context.Background(), strings.NewReader(``))
	for range itemCh {
	}
	assert.NoError(t, <-errCh)
}

func TestLoadBaseRecords_PriceAndVisitColumns(t *testing.T) {
	path := writeFile(t, "national.csv", strings.Join([]string{
		"id,name,Ticket Price,Price Conditions,Payment Methods,Visiting Services",
		`m1,Panthéon,11.50 EUR,Free under 18,card,"guided tours, audio guide"`,
	}, "\n"))

	recs, err := LoadBaseRecords(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "11.50 EUR", recs[0].TicketPrice)
	assert.Equal(t, "Free under 18", recs[0].PriceConditions)
	assert.Equal(t, "card", recs[0].PaymentMethods)
	assert.Equal(t, "guided tours, audio guide", recs[0].VisitingServices)
	assert.Empty(t, recs[0].PriceLevel)
}

func TestLoadCandidates_PriceLevelAndReviews(t *testing.T) {
	csvPath := writeFile(t, "map.csv", "base_id,source_id,name,price_level\nm1,g1,Louvre,3\n")
	cands, err := LoadCandidates(context.Background(), csvPath, model.SourceMapProvider)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "3", cands[0].PriceLevel)

	jsonPath := writeFile(t, "poi.json", `[{"source_id":"4b0588","base_id":"m1","name":"Louvre",
		"reviews":[{"text":"Huge queue","language":"en","polarity":-0.4,"time":"2014-05-02"},{"author":"A.","rating":5,"text":"Superbe"}]}]`)
	cands, err = LoadCandidates(context.Background(), jsonPath, model.SourcePointsOfInterest)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.Len(t, cands[0].Reviews, 2)
	assert.Equal(t, "Huge queue", cands[0].Reviews[0].Text)
	require.NotNil(t, cands[0].Reviews[0].Polarity)
	assert.InDelta(t, -0.4, *cands[0].Reviews[0].Polarity, 1e-9)
	require.NotNil(t, cands[0].Reviews[1].Rating)
	assert.InDelta(t, 5.0, *cands[0].Reviews[1].Rating, 1e-9)
}
