package pkgresolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgeval"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgformat"
)

func fakeEvaluator(byID map[string]pkgeval.Data) Evaluator {
	return func(_ context.Context, id string, _ pkgeval.Input) (pkgeval.Data, error) {
		data, ok := byID[id]
		if !ok {
			return pkgeval.Data{}, nil
		}
		return data, nil
	}
}

func resolvedIDs(res Result) []string {
	ids := make([]string, len(res.Resolved))
	for i, r := range res.Resolved {
		ids[i] = r.ID
	}
	return ids
}

func TestResolveDeterministicOrder(t *testing.T) {
	ctx := context.Background()
	registry := map[string]pkgeval.Data{
		"alpha": {Deps: []pkgformat.DepGroup{"gamma"}},
		"beta":  {},
		"gamma": {},
	}
	seeds := []Seed{{ID: "alpha"}, {ID: "beta"}}
	eval := fakeEvaluator(registry)

	var first []string
	for i := 0; i < 20; i++ {
		res, err := Resolve(ctx, pkgeval.Constants{}, "", seeds, eval)
		require.NoError(t, err)
		if i == 0 {
			first = resolvedIDs(res)
			continue
		}
		assert.Equal(t, first, resolvedIDs(res), "resolver output order must be bitwise identical across runs")
	}
}

func TestResolveConflictSymmetry(t *testing.T) {
	ctx := context.Background()
	registry := map[string]pkgeval.Data{
		"alpha": {Conflicts: []string{"beta"}},
		"beta":  {},
	}
	eval := fakeEvaluator(registry)

	_, errAB := Resolve(ctx, pkgeval.Constants{}, "", []Seed{{ID: "alpha"}, {ID: "beta"}}, eval)
	_, errBA := Resolve(ctx, pkgeval.Constants{}, "", []Seed{{ID: "beta"}, {ID: "alpha"}}, eval)

	require.Error(t, errAB)
	require.Error(t, errBA)
	assert.IsType(t, &mcerrors.ResolverConflictError{}, errAB)
	assert.IsType(t, &mcerrors.ResolverConflictError{}, errBA)
}

func TestResolveSourcePriorityUserRequireWins(t *testing.T) {
	ctx := context.Background()
	registry := map[string]pkgeval.Data{
		"alpha": {Deps: []pkgformat.DepGroup{"shared"}},
		"shared": {},
	}
	eval := fakeEvaluator(registry)

	// "shared" is reached both directly (UserRequire) and as alpha's
	// dependency; order in the seed list shouldn't matter.
	res, err := Resolve(ctx, pkgeval.Constants{}, "", []Seed{{ID: "alpha"}, {ID: "shared"}}, eval)
	require.NoError(t, err)

	var shared Resolved
	for _, r := range res.Resolved {
		if r.ID == "shared" {
			shared = r
		}
	}
	assert.Equal(t, config.SourceUserRequire, shared.Source)
}

func TestResolveCycleDetection(t *testing.T) {
	ctx := context.Background()
	registry := map[string]pkgeval.Data{
		"alpha": {Deps: []pkgformat.DepGroup{"beta"}},
		"beta":  {Deps: []pkgformat.DepGroup{"alpha"}},
	}
	eval := fakeEvaluator(registry)

	_, err := Resolve(ctx, pkgeval.Constants{}, "", []Seed{{ID: "alpha"}}, eval)
	require.Error(t, err)
	assert.IsType(t, &mcerrors.ResolverCycleError{}, err)
}

func TestResolveUnfulfilledExtensionErrors(t *testing.T) {
	ctx := context.Background()
	registry := map[string]pkgeval.Data{
		"alpha": {Extensions: []string{"not-installed"}},
	}
	eval := fakeEvaluator(registry)

	_, err := Resolve(ctx, pkgeval.Constants{}, "", []Seed{{ID: "alpha"}}, eval)
	require.Error(t, err)
	assert.IsType(t, &mcerrors.ResolverUnfulfilledError{}, err)
}
