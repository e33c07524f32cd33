package feature

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
)

func TestCSVRoundTrip(t *testing.T) {
	m, _ := Vectorize(sampleArticles())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ItemIDHeader, m))
	assert.True(t, strings.HasPrefix(buf.String(), "id,topic_ai,topic_data,"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Columns(), got.Columns())
	assert.Equal(t, m.IDs(), got.IDs())
	for _, id := range m.IDs() {
		want, _ := m.Row(id)
		row, ok := got.Row(id)
		require.True(t, ok)
		assert.Equal(t, want, row)
	}
}

func TestReadCSVCoercesStringlyTypedCells(t *testing.T) {
	data := "id,topic_a,topic_b,keyword_c\n" +
		"712.0,1.0,True,oops\n" +
		"nan,1,1,1\n" +
		",1,1,1\n" +
		"712,0,0,0\n" +
		"8,0.5\n"
	m, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"712", "8"}, m.IDs())
	row, ok := m.Row("712")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1, 0}, row)

	row, ok = m.Row("8")
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 0, 0}, row)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, core.ErrMatrixMissing))
}

func TestCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles_profiles.csv")

	_, err := LoadCSVFile(path)
	assert.True(t, errors.Is(err, core.ErrMatrixMissing))

	m, _ := Vectorize(sampleArticles())
	require.NoError(t, SaveCSVFile(path, ItemIDHeader, m))

	got, err := LoadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.Len(), got.Len())
}
