package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
)

func testMatrix(t *testing.T) *feature.Matrix {
	t.Helper()
	m := feature.NewMatrix([]string{"topic_AI", "topic_data", "keyword_go"})
	_, err := m.Add("A", []float64{1, 0, 1})
	require.NoError(t, err)
	_, err = m.Add("B", []float64{0, 1, 0})
	require.NoError(t, err)
	_, err = m.Add("712.0", []float64{0, 0, 1})
	require.NoError(t, err)
	return m
}

func TestBuilderRepeatedLikesAccumulate(t *testing.T) {
	b := NewBuilder(core.InteractionWeights{})
	got := b.Build(&core.User{Likes: []string{"A", "A"}}, testMatrix(t))
	assert.InDeltaSlice(t, []float64{1, 0, 1}, got, 1e-9)
}

func TestBuilderWeightedMean(t *testing.T) {
	b := NewBuilder(core.DefaultInteractionWeights())
	got := b.Build(&core.User{Likes: []string{"A"}, Read: []string{"B", "missing"}}, testMatrix(t))
	// (1.0*A + 0.5*B) / 1.5
	assert.InDeltaSlice(t, []float64{1 / 1.5, 0.5 / 1.5, 1 / 1.5}, got, 1e-9)
}

func TestBuilderFavoriteWeight(t *testing.T) {
	b := NewBuilder(core.DefaultInteractionWeights())
	got := b.Build(&core.User{Favorites: []string{"A"}, Read: []string{"B"}}, testMatrix(t))
	assert.InDeltaSlice(t, []float64{1.5 / 2, 0.5 / 2, 1.5 / 2}, got, 1e-9)
}

func TestBuilderCanonicalizesIDs(t *testing.T) {
	b := NewBuilder(core.DefaultInteractionWeights())
	got := b.Build(&core.User{Likes: []string{"712"}}, testMatrix(t))
	assert.InDeltaSlice(t, []float64{0, 0, 1}, got, 1e-9)
}

func TestBuilderInterestsOnly(t *testing.T) {
	b := NewBuilder(core.DefaultInteractionWeights())
	got := b.Build(&core.User{Interests: []string{" ai ", "Cooking"}}, testMatrix(t))
	assert.Equal(t, []float64{1, 0, 0}, got)
}

func TestInterestVectorSetsEveryCaseVariant(t *testing.T) {
	m := feature.NewMatrix([]string{"topic_AI", "topic_ai", "subtopic_ai", "topic_web"})
	vec, hit := InterestVector([]string{"ai"}, m)
	assert.True(t, hit)
	assert.Equal(t, []float64{1, 1, 0, 0}, vec)
}

func TestBuilderCombinesInteractionsAndInterests(t *testing.T) {
	b := NewBuilder(core.DefaultInteractionWeights())
	got := b.Build(&core.User{Likes: []string{"A"}, Interests: []string{"Data"}}, testMatrix(t))
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5}, got, 1e-9)
}

func TestBuilderNothingYieldsZeroVector(t *testing.T) {
	b := NewBuilder(core.DefaultInteractionWeights())
	m := testMatrix(t)

	got := b.Build(&core.User{Likes: []string{"unknown"}, Interests: []string{"cooking"}}, m)
	assert.Equal(t, []float64{0, 0, 0}, got)
	assert.Equal(t, []float64{0, 0, 0}, b.Build(nil, m))
}

func TestBuildProfile(t *testing.T) {
	b := NewBuilder(core.DefaultInteractionWeights())
	m := testMatrix(t)
	p := b.BuildProfile(&core.User{UserID: "u1", Likes: []string{"B"}}, m, TriggerArticleLiked)

	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, m.Columns(), p.Columns)
	assert.Equal(t, TriggerArticleLiked, p.Trigger)
	assert.False(t, p.UpdatedAt.IsZero())
	assert.Equal(t, []float64{0, 1, 0}, p.Values)
}
