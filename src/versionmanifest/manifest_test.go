package versionmanifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oldest -> newest
var orderedVersions = []string{"1.16.5", "1.17.1", "1.18.2", "1.19.2", "1.20.1"}

func TestPatternMonotonicity(t *testing.T) {
	for _, v := range orderedVersions {
		before, err := ParsePattern("<=" + v)
		require.NoError(t, err)
		after, err := ParsePattern(">=" + v)
		require.NoError(t, err)

		vi := indexOf(orderedVersions, v)
		for _, w := range orderedVersions {
			wi := indexOf(orderedVersions, w)
			assert.Equal(t, wi <= vi, before.Matches(orderedVersions, w), "Before(%s).Matches(%s)", v, w)
			assert.Equal(t, wi >= vi, after.Matches(orderedVersions, w), "After(%s).Matches(%s)", v, w)
		}
	}
}

func TestPatternUnknownVersionNeverMatches(t *testing.T) {
	p, err := ParsePattern("1.18.2")
	require.NoError(t, err)
	assert.False(t, p.Matches(orderedVersions, "99.99"))
}

func TestLatestResolvesToNewest(t *testing.T) {
	p, err := ParsePattern("latest")
	require.NoError(t, err)
	v, err := p.Resolve(orderedVersions)
	require.NoError(t, err)
	assert.Equal(t, "1.20.1", v)
}

func TestRangeResolvesToUpperBound(t *testing.T) {
	p, err := ParsePattern("1.17.1..1.19.2")
	require.NoError(t, err)
	v, err := p.Resolve(orderedVersions)
	require.NoError(t, err)
	assert.Equal(t, "1.19.2", v)
}

func TestSingleResolveUnknownVersionErrors(t *testing.T) {
	p, err := ParsePattern("1.99.99")
	require.NoError(t, err)
	_, err = p.Resolve(orderedVersions)
	assert.Error(t, err)
}

func TestManifestAndListOrdering(t *testing.T) {
	m := Manifest{Versions: []Entry{
		{ID: "1.19.2", Typ: TypeRelease, URL: "u2"},
		{ID: "1.18.2", Typ: TypeRelease, URL: "u1"},
	}}
	ml := NewManifestAndList(m)
	assert.Equal(t, []string{"1.18.2", "1.19.2"}, ml.List)

	e, ok := ml.Entry("1.19.2")
	require.True(t, ok)
	assert.Equal(t, "u2", e.URL)

	_, ok = ml.Entry("missing")
	assert.False(t, ok)
}
