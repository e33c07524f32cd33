package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/recall"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "{}\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendMongo, cfg.Catalog.Backend)
	assert.Equal(t, BackendCSV, cfg.Profile.Store)
	assert.Equal(t, 1.5, cfg.Profile.Weights.Favorite)
	assert.Equal(t, 3, cfg.Ranking.Widen)
	assert.Equal(t, 30, cfg.Ranking.MinPercent)
	assert.Equal(t, 95, cfg.Ranking.MaxPercent)
	assert.Equal(t, recall.DefaultFallbackPolicy().TopicMatch, cfg.Fallback.TopicMatch)
	assert.Equal(t, 10*time.Second, cfg.Mongo.Timeout)
	assert.NotNil(t, cfg.Log.Output)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
catalog:
  backend: file
users:
  backend: file
profile:
  store: sqlite
  weights:
    favorite: 2
ranking:
  default_count: 10
  blacklist: ["12", "712"]
fallback:
  no_match: {min: 20, max: 40}
  bonuses:
    - name: long_abstract
      expr: "size(item.meta.abstract) > 200"
      bonus: 5
server:
  addr: ":9090"
  read_timeout: 3s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Catalog.Backend)
	assert.Equal(t, BackendSQLite, cfg.Profile.Store)
	assert.Equal(t, 2.0, cfg.Profile.Weights.Favorite)
	assert.Equal(t, 1.0, cfg.Profile.Weights.Like)
	assert.Equal(t, 10, cfg.Ranking.DefaultCount)
	assert.Equal(t, []string{"12", "712"}, cfg.Ranking.Blacklist)
	assert.Equal(t, recall.ScoreRange{Min: 20, Max: 40}, cfg.Fallback.NoMatch)
	require.Len(t, cfg.Fallback.Bonuses, 1)
	assert.Equal(t, "long_abstract", cfg.Fallback.Bonuses[0].Name)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ARTREC_MONGO_URI", "mongodb://db:27017")
	t.Setenv("ARTREC_RANKING_DEFAULT_COUNT", "7")
	t.Setenv("ARTREC_RANKING_BLACKLIST", "1, 2,,3")
	t.Setenv("ARTREC_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, 7, cfg.Ranking.DefaultCount)
	assert.Equal(t, []string{"1", "2", "3"}, cfg.Ranking.Blacklist)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown catalog backend", "catalog: {backend: postgres}\n"},
		{"unknown profile store", "profile: {store: etcd}\n"},
		{"negative count", "ranking: {default_count: -1}\n"},
		{"inverted clamp", "ranking: {min_percent: 90, max_percent: 40}\n"},
		{"inverted range", "fallback: {topic_match: {min: 90, max: 10}}\n"},
		{"feast without host", "users: {backend: feast}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "mongo.uri", envTransform("ARTREC_MONGO_URI"))
	assert.Equal(t, "ranking.default_count", envTransform("ARTREC_RANKING_DEFAULT_COUNT"))
	assert.Equal(t, "", envTransform("ARTREC_CONFIG"))
}
