package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantUser  string
		wantCount int
		wantErr   bool
	}{
		{"empty", nil, "", 0, false},
		{"null user", []string{"null", "4"}, "", 4, false},
		{"user and count", []string{"64b7f0c2e4b0a1a2b3c4d5e6", "6"}, "64b7f0c2e4b0a1a2b3c4d5e6", 6, false},
		{"bad count", []string{"u1", "six"}, "", 0, true},
		{"negative count", []string{"u1", "-1"}, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, count, err := parseArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestVectorizeAndTopicsCommands(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "articles.json")
	require.NoError(t, os.WriteFile(catalog, []byte(`[
		{"id": 1, "title": "One", "topic": "AI", "subtopic": "NLP"},
		{"id": 2, "title": "Two", "topic": "Data", "subtopic": "SQL"}
	]`), 0o644))
	users := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(users, []byte(`[]`), 0o644))
	matrix := filepath.Join(dir, "matrix.csv")

	t.Setenv("ARTREC_CATALOG_BACKEND", "file")
	t.Setenv("ARTREC_USERS_BACKEND", "file")
	t.Setenv("ARTREC_PROFILE_STORE", "memory")
	t.Setenv("ARTREC_SNAPSHOT_CATALOG_FILE", catalog)
	t.Setenv("ARTREC_SNAPSHOT_USERS_FILE", users)
	t.Setenv("ARTREC_SNAPSHOT_MATRIX_PATH", matrix)
	cfgFile := filepath.Join(dir, "artrec.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("log: {level: error}\n"), 0o644))

	rootCmd.SetArgs([]string{"--config", cfgFile, "vectorize"})
	require.NoError(t, rootCmd.Execute())
	_, err := os.Stat(matrix)
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgFile, "topics"})
	require.NoError(t, rootCmd.Execute())

	var report topicsReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, []string{"AI", "Data"}, report.Topics)
	assert.Equal(t, []string{"NLP", "SQL"}, report.Subtopics)
}
