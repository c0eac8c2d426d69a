// Package pkgresolve implements the Package Resolver: a deterministic
// BFS over package requests, seeded from user config, expanding
// dependencies/bundles while tracking conflicts, extensions, compats,
// and cycles through the request's parent chain.
package pkgresolve

import (
	"context"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgeval"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgformat"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgregistry"
)

// Evaluator abstracts InstallResolve: resolution calls this to
// evaluate a package's relations without ever emitting addon URL
// fetches (design note: resolution must not touch the network for
// addon content).
type Evaluator func(ctx context.Context, id string, in pkgeval.Input) (pkgeval.Data, error)

// Seed is one user-configured package to resolve.
type Seed struct {
	ID       string
	Params   pkgeval.Params
	Stability pkgformat.Stability
}

// Resolved is one package that survived resolution.
type Resolved struct {
	ID     string
	Source config.Source
	Chain  []string
	Data   pkgeval.Data
}

// Result is the resolver's full output.
type Result struct {
	Resolved        []Resolved
	Recommendations []string
}

type task struct {
	req    config.PkgRequest
	params pkgeval.Params
	stability pkgformat.Stability
}

// Resolve runs a breadth-first walk over seeds and their transitive
// dependencies, evaluating each package exactly once per resolution.
func Resolve(ctx context.Context, constants pkgeval.Constants, profileStability pkgformat.Stability, seeds []Seed, evaluate Evaluator) (Result, error) {
	var queue []task
	for _, s := range seeds {
		stability := s.Stability
		if stability == "" {
			stability = profileStability
		}
		queue = append(queue, task{
			req:       config.PkgRequest{ID: s.ID, Source: config.SourceUserRequire},
			params:    s.Params,
			stability: stability,
		})
	}

	resolvedByID := map[string]Resolved{}
	var resolvedOrder []string
	refused := map[string]string{} // refused id -> id of the package that refused it
	var compatWatch [][2]string
	var recommendations []string

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		if t.req.InChain(t.req.ID) {
			return Result{}, &mcerrors.ResolverCycleError{Cycle: append(append([]string{}, t.req.ParentChain...), t.req.ID)}
		}
		if existing, ok := resolvedByID[t.req.ID]; ok {
			if t.req.Source.Priority() >= existing.Source.Priority() {
				continue // already resolved from an equal-or-higher-priority source
			}
		}
		if by, ok := refused[t.req.ID]; ok {
			return Result{}, &mcerrors.ResolverConflictError{
				PackageA: by, ChainA: strings.Join(resolvedByID[by].Chain, " -> "),
				PackageB: t.req.ID, ChainB: chainString(t.req),
			}
		}

		params := t.params
		params.Stability = t.stability
		in := pkgeval.Input{Constants: constants, Params: params}

		data, err := evaluate(ctx, t.req.ID, in)
		if err != nil {
			return Result{}, err
		}

		for _, c := range data.Conflicts {
			if res, ok := resolvedByID[c]; ok {
				return Result{}, &mcerrors.ResolverConflictError{
					PackageA: t.req.ID, ChainA: chainString(t.req),
					PackageB: c, ChainB: strings.Join(res.Chain, " -> "),
				}
			}
			refused[c] = t.req.ID
		}

		for _, e := range data.Extensions {
			if _, ok := resolvedByID[e]; !ok {
				return Result{}, &mcerrors.ResolverUnfulfilledError{Kind: "extension", Parent: t.req.ID, Chain: chainString(t.req), Group: []string{e}}
			}
		}

		for _, c := range data.Compats {
			compatWatch = append(compatWatch, [2]string{c[0], c[1]})
		}

		if _, already := resolvedByID[t.req.ID]; !already {
			resolvedOrder = append(resolvedOrder, t.req.ID)
		}
		resolvedByID[t.req.ID] = Resolved{
			ID: t.req.ID, Source: t.req.Source,
			Chain: append(append([]string{}, t.req.ParentChain...), t.req.ID),
			Data:  data,
		}

		for _, b := range data.Bundled {
			queue = append(queue, task{
				req:       t.req.WithParent(b, config.SourceBundled),
				params:    t.params,
				stability: t.stability,
			})
		}

		recommendations = append(recommendations, data.Recommendations...)

		for _, group := range data.Deps {
			picked := ""
			for _, candidate := range group {
				if _, ok := refused[candidate]; ok {
					continue
				}
				picked = candidate
				break
			}
			if picked == "" {
				return Result{}, &mcerrors.ResolverUnfulfilledError{Kind: "dependency", Parent: t.req.ID, Chain: chainString(t.req), Group: group}
			}
			// Features are not inherited across a dependency edge.
			depParams := pkgeval.Params{Side: t.params.Side, ConfigSource: t.params.ConfigSource, Permission: t.params.Permission, Worlds: t.params.Worlds}
			queue = append(queue, task{
				req:       t.req.WithParent(picked, config.SourceDependency),
				params:    depParams,
				stability: t.stability, // inherited from parent unless overridden at UserRequire
			})
		}
	}

	for _, pair := range compatWatch {
		if _, ok := resolvedByID[pair[0]]; ok {
			if _, ok := resolvedByID[pair[1]]; !ok {
				return Result{}, &mcerrors.ResolverUnfulfilledError{Kind: "compat", Parent: pair[0], Chain: pair[0], Group: []string{pair[1]}}
			}
		}
	}

	result := Result{Recommendations: dedup(recommendations)}
	for _, id := range resolvedOrder {
		result.Resolved = append(result.Resolved, resolvedByID[id])
	}
	return result, nil
}

func chainString(req config.PkgRequest) string {
	return strings.Join(append(append([]string{}, req.ParentChain...), req.ID), " -> ")
}

func dedup(list []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range list {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// MakeEvaluator adapts a pkgregistry.Registry into the Evaluator
// signature the resolver expects, running script packages through
// "install_resolve" (never "install", so addon URL fetching is
// short-circuited) and declarative packages through the normal
// declarative evaluator (which never performs network I/O).
func MakeEvaluator(reg *pkgregistry.Registry) Evaluator {
	return func(ctx context.Context, id string, in pkgeval.Input) (pkgeval.Data, error) {
		decl, script, _, err := reg.Resolve(ctx, id)
		if err != nil {
			return pkgeval.Data{}, err
		}
		if decl != nil {
			return pkgeval.EvaluateDeclarative(*decl, in)
		}
		return pkgeval.RunScript(*script, "install_resolve", in, in.Params.Permission, nil)
	}
}
