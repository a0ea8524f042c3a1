package charts

import (
	"bytes"
	"testing"
	"time"

	"salesdash/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestExtremesPNG(t *testing.T) {
	var buf bytes.Buffer
	ext := &core.Extremes{
		Most:  core.CategoryCount{Category: "A", Count: 5},
		Least: core.CategoryCount{Category: "B", Count: 2},
	}
	require.NoError(t, Extremes(&buf, ext, Size{Width: 300, Height: 200}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestExtremesNoData(t *testing.T) {
	var buf bytes.Buffer
	require.ErrorIs(t, Extremes(&buf, nil, ExtremesSize), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestMonthlyTopPNG(t *testing.T) {
	ranking := []core.MonthRanking{
		{Month: time.January, Name: "January", Top: []core.CategoryCount{{"A", 5}, {"B", 2}}},
		{Month: time.March, Name: "March", Top: []core.CategoryCount{{"C", 4}, {"A", 1}}},
	}
	var buf bytes.Buffer
	require.NoError(t, MonthlyTop(&buf, "Top Three Selling Categories 2017", ranking, Size{Width: 400, Height: 250}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	require.ErrorIs(t, MonthlyTop(&buf, "x", nil, MonthlySize), ErrNoData)
}

func TestPivot(t *testing.T) {
	ranking := []core.MonthRanking{
		{Name: "January", Top: []core.CategoryCount{{"A", 5}, {"B", 2}}},
		{Name: "March", Top: []core.CategoryCount{{"C", 4}, {"A", 1}}},
	}
	cats, byCat := pivot(ranking)
	assert.Equal(t, []string{"A", "B", "C"}, cats)
	assert.Equal(t, []float64{5, 1}, []float64(byCat["A"]))
	assert.Equal(t, []float64{2, 0}, []float64(byCat["B"]))
	assert.Equal(t, []float64{0, 4}, []float64(byCat["C"]))
}

func TestMonthlyTitle(t *testing.T) {
	assert.Equal(t, "Top Three Selling Categories 2017", MonthlyTitle(2017, 3))
	assert.Equal(t, "Top 12 Selling Categories 2018", MonthlyTitle(2018, 12))
}
