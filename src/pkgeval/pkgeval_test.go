package pkgeval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgformat"
)

func baseInput() Input {
	return Input{
		Constants: Constants{Version: "1.20.1", Modloader: "fabric"},
		Params:    Params{Side: "client", Stability: pkgformat.StabilityStable},
	}
}

func TestCheckPropertiesSideMismatchIsEmptyButSuccessful(t *testing.T) {
	p := pkgformat.Properties{SupportedSides: []string{"server"}}
	applies, err := CheckProperties(p, baseInput())
	require.NoError(t, err)
	assert.False(t, applies)
}

func TestCheckPropertiesVersionMismatchIsAnError(t *testing.T) {
	p := pkgformat.Properties{SupportedVersions: []string{"1.19.2"}}
	_, err := CheckProperties(p, baseInput())
	assert.Error(t, err)
}

func TestCheckPropertiesNoConstraintsAlwaysApplies(t *testing.T) {
	applies, err := CheckProperties(pkgformat.Properties{}, baseInput())
	require.NoError(t, err)
	assert.True(t, applies)
}

func declAddon(id, kind, fileName, url string, cond pkgformat.DeclarativeCondition) pkgformat.DeclarativeAddon {
	return pkgformat.DeclarativeAddon{
		ID: id,
		Versions: []pkgformat.DeclarativeAddonVersion{
			{
				Condition: cond,
				Request: pkgformat.AddonRequest{
					Kind: kind, FileName: fileName, URL: url,
				},
			},
		},
	}
}

func TestEvaluateDeclarativePicksFirstMatchingVersion(t *testing.T) {
	pkg := pkgformat.DeclarativePackage{
		ID: "sodium",
		Addons: []pkgformat.DeclarativeAddon{
			{
				ID: "main",
				Versions: []pkgformat.DeclarativeAddonVersion{
					{
						Condition: pkgformat.DeclarativeCondition{Modloaders: []string{"forge"}},
						Request:   pkgformat.AddonRequest{Kind: "mod", FileName: "sodium-forge.jar", URL: "https://example.com/f.jar"},
					},
					{
						Condition: pkgformat.DeclarativeCondition{Modloaders: []string{"fabric"}},
						Request:   pkgformat.AddonRequest{Kind: "mod", FileName: "sodium-fabric.jar", URL: "https://example.com/a.jar"},
					},
				},
			},
		},
	}
	data, err := EvaluateDeclarative(pkg, baseInput())
	require.NoError(t, err)
	require.Len(t, data.AddonReqs, 1)
	assert.Equal(t, "sodium-fabric.jar", data.AddonReqs[0].FileName)
	assert.Equal(t, "main", data.AddonReqs[0].ID)
}

func TestEvaluateDeclarativeOptionalAddonWithNoMatchIsSkipped(t *testing.T) {
	pkg := pkgformat.DeclarativePackage{
		ID: "optional-shader",
		Addons: []pkgformat.DeclarativeAddon{
			{
				ID:       "shader",
				Optional: true,
				Versions: []pkgformat.DeclarativeAddonVersion{
					{Condition: pkgformat.DeclarativeCondition{Modloaders: []string{"forge"}}, Request: pkgformat.AddonRequest{Kind: "shader", FileName: "x.zip", URL: "https://example.com/x.zip"}},
				},
			},
		},
	}
	data, err := EvaluateDeclarative(pkg, baseInput())
	require.NoError(t, err)
	assert.Empty(t, data.AddonReqs)
}

func TestEvaluateDeclarativeRequiredAddonWithNoMatchFails(t *testing.T) {
	pkg := pkgformat.DeclarativePackage{
		ID: "required-only-forge",
		Addons: []pkgformat.DeclarativeAddon{
			{
				ID: "main",
				Versions: []pkgformat.DeclarativeAddonVersion{
					{Condition: pkgformat.DeclarativeCondition{Modloaders: []string{"forge"}}, Request: pkgformat.AddonRequest{Kind: "mod", FileName: "x.jar", URL: "https://example.com/x.jar"}},
				},
			},
		},
	}
	_, err := EvaluateDeclarative(pkg, baseInput())
	require.Error(t, err)
}

func TestEvaluateDeclarativeAppliesConditionalRuleRelations(t *testing.T) {
	pkg := pkgformat.DeclarativePackage{
		ID: "fabric-api-dependent",
		Addons: []pkgformat.DeclarativeAddon{
			declAddon("main", "mod", "x.jar", "https://example.com/x.jar", pkgformat.DeclarativeCondition{}),
		},
		ConditionalRules: []pkgformat.ConditionalRule{
			{
				Condition: pkgformat.DeclarativeCondition{Modloaders: []string{"fabric"}},
				Relations: []pkgformat.Relation{{Kind: pkgformat.RelRequire, Target: "fabric-api"}},
			},
		},
	}
	data, err := EvaluateDeclarative(pkg, baseInput())
	require.NoError(t, err)
	require.Len(t, data.Deps, 1)
	assert.Equal(t, pkgformat.DepGroup{"fabric-api"}, data.Deps[0])
}

func TestEvaluateDeclarativeRequireGroupBecomesOneDepGroup(t *testing.T) {
	pkg := pkgformat.DeclarativePackage{
		ID: "either-loader",
		ConditionalRules: []pkgformat.ConditionalRule{
			{
				Relations: []pkgformat.Relation{{Kind: pkgformat.RelRequire, Group: pkgformat.DepGroup{"fabric-api", "forge-compat"}}},
			},
		},
	}
	data, err := EvaluateDeclarative(pkg, baseInput())
	require.NoError(t, err)
	require.Len(t, data.Deps, 1)
	assert.ElementsMatch(t, pkgformat.DepGroup{"fabric-api", "forge-compat"}, data.Deps[0])
}

func TestEvaluateDeclarativeTooManyNoticesFails(t *testing.T) {
	var notices []string
	for i := 0; i < maxNotices+1; i++ {
		notices = append(notices, "n")
	}
	pkg := pkgformat.DeclarativePackage{
		ID: "noisy",
		ConditionalRules: []pkgformat.ConditionalRule{
			{Notices: notices},
		},
	}
	_, err := EvaluateDeclarative(pkg, baseInput())
	assert.Error(t, err)
}

func TestEvaluateDeclarativeRejectsUndeclaredRequestedFeature(t *testing.T) {
	pkg := pkgformat.DeclarativePackage{ID: "no-features"}
	in := baseInput()
	in.Params.Features = []string{"optifine-compat"}
	_, err := EvaluateDeclarative(pkg, in)
	assert.Error(t, err)
}

func TestValidateAddonRequestViaEvaluateRejectsBadHash(t *testing.T) {
	pkg := pkgformat.DeclarativePackage{
		ID: "hashed",
		Addons: []pkgformat.DeclarativeAddon{
			{
				ID: "main",
				Versions: []pkgformat.DeclarativeAddonVersion{
					{
						Request: pkgformat.AddonRequest{
							Kind: "mod", URL: "https://example.com/x.jar", SHA256: "not-hex!!",
						},
					},
				},
			},
		},
	}
	_, err := EvaluateDeclarative(pkg, baseInput())
	assert.Error(t, err)
}

func TestValidateAddonRequestDefaultFileNameUsesPackageAndAddonID(t *testing.T) {
	pkg := pkgformat.DeclarativePackage{
		ID: "auto-name",
		Addons: []pkgformat.DeclarativeAddon{
			{
				ID: "core",
				Versions: []pkgformat.DeclarativeAddonVersion{
					{Request: pkgformat.AddonRequest{Kind: "mod", URL: "https://example.com/x.jar"}},
				},
			},
		},
	}
	data, err := EvaluateDeclarative(pkg, baseInput())
	require.NoError(t, err)
	require.Len(t, data.AddonReqs, 1)
	assert.Equal(t, "mcvm_auto-name_core.jar", data.AddonReqs[0].FileName)
}

func TestValidateAddonRequestRejectsBothURLAndPath(t *testing.T) {
	pkg := pkgformat.DeclarativePackage{
		ID: "conflicting",
		Addons: []pkgformat.DeclarativeAddon{
			{
				ID: "main",
				Versions: []pkgformat.DeclarativeAddonVersion{
					{Request: pkgformat.AddonRequest{Kind: "mod", URL: "https://example.com/x.jar", Path: "/tmp/x.jar"}},
				},
			},
		},
	}
	_, err := EvaluateDeclarative(pkg, baseInput())
	assert.Error(t, err)
}

func pathAddonPackage() pkgformat.DeclarativePackage {
	return pkgformat.DeclarativePackage{
		ID: "local-addon",
		Addons: []pkgformat.DeclarativeAddon{
			{
				ID: "main",
				Versions: []pkgformat.DeclarativeAddonVersion{
					{Request: pkgformat.AddonRequest{Kind: "mod", Path: "~/mods/local.jar"}},
				},
			},
		},
	}
}

func TestValidateAddonRequestRejectsLocalPathUnderStandardPermission(t *testing.T) {
	in := baseInput()
	in.Params.Permission = PermissionStandard
	_, err := EvaluateDeclarative(pathAddonPackage(), in)
	require.Error(t, err)
	assert.IsType(t, &mcerrors.PermissionError{}, err)
}

func TestValidateAddonRequestAllowsLocalPathUnderElevatedPermission(t *testing.T) {
	in := baseInput()
	in.Params.Permission = PermissionElevated
	data, err := EvaluateDeclarative(pathAddonPackage(), in)
	require.NoError(t, err)
	require.Len(t, data.AddonReqs, 1)
	assert.NotEqual(t, "~/mods/local.jar", data.AddonReqs[0].Path, "a ~-prefixed path must be expanded against the home directory")
}

func TestContainsHelper(t *testing.T) {
	assert.True(t, contains([]string{"a", "b"}, "b"))
	assert.False(t, contains([]string{"a", "b"}, "c"))
}
