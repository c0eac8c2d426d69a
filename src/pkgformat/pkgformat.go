// Package pkgformat defines the package content model shared by the
// script and declarative formats: properties, relations, addon
// requests, and the declarative schema's conditioned addon versions.
// The script interpreter's AST (see Instruction) is kept intentionally
// minimal: structured control flow only, no unbounded recursion.
package pkgformat

// Properties gates whether a package applies at all, checked before
// any instructions run.
type Properties struct {
	SupportedVersions     []string `json:"supported_versions,omitempty"`
	SupportedModloaders   []string `json:"supported_modloaders,omitempty"`
	SupportedPluginLoaders []string `json:"supported_plugin_loaders,omitempty"`
	SupportedSides        []string `json:"supported_sides,omitempty"`
	SupportedOS           []string `json:"supported_operating_systems,omitempty"`
	SupportedArch         []string `json:"supported_architectures,omitempty"`
}

// RelationKind names an emitted package-to-package relation.
type RelationKind string

const (
	RelRequire    RelationKind = "require"
	RelRefuse     RelationKind = "refuse"
	RelRecommend  RelationKind = "recommend"
	RelBundle     RelationKind = "bundle"
	RelCompat     RelationKind = "compat"
	RelExtend     RelationKind = "extend"
)

// DepGroup is an OR-group of candidate package ids: the group is
// satisfied if any single member resolves.
type DepGroup []string

// AddonRequest is a package's request to install one addon, as
// emitted by either format before validation.
type AddonRequest struct {
	Kind     string
	ID       string
	Version  string
	FileName string
	URL      string
	Path     string
	SHA256   string
	SHA512   string
}

// AddonKinds mirrors config.AddonKind's accepted string values without
// importing config, keeping pkgformat dependency-free for the script
// interpreter package.
var AddonKinds = map[string]bool{
	"mod": true, "resource_pack": true, "plugin": true, "shader": true, "datapack": true,
}

// Stability is a package's declared release channel.
type Stability string

const (
	StabilityStable Stability = "stable"
	StabilityLatest Stability = "latest"
)

// DeclarativeCondition gates a declarative addon version's selection.
type DeclarativeCondition struct {
	Stability          Stability `json:"stability,omitempty"`
	Side               string    `json:"side,omitempty"`
	Features           []string  `json:"features,omitempty"`
	MinecraftVersions  []string  `json:"minecraft_versions,omitempty"`
	Modloaders         []string  `json:"modloaders,omitempty"`
	PluginLoaders      []string  `json:"plugin_loaders,omitempty"`
	OperatingSystems   []string  `json:"operating_systems,omitempty"`
	Architectures      []string  `json:"architectures,omitempty"`
	Languages          []string  `json:"languages,omitempty"`
}

// DeclarativeAddonVersion is one candidate version of a declarative
// addon: a condition set plus what it emits when chosen.
type DeclarativeAddonVersion struct {
	Condition DeclarativeCondition `json:"condition"`
	Request   AddonRequest         `json:"request"`
	Relations []Relation           `json:"relations,omitempty"`
	Notices   []string             `json:"notices,omitempty"`
}

// DeclarativeAddon is one addon slot: versions are matched in declared
// order, first match wins.
type DeclarativeAddon struct {
	ID       string                     `json:"id"`
	Optional bool                       `json:"optional,omitempty"`
	Versions []DeclarativeAddonVersion  `json:"versions"`
}

// ConditionalRule applies extra relations/notices when all of its
// conditions match the evaluation input.
type ConditionalRule struct {
	Condition DeclarativeCondition `json:"condition"`
	Relations []Relation           `json:"relations,omitempty"`
	Notices   []string             `json:"notices,omitempty"`
}

// Relation is one emitted package-to-package relation.
type Relation struct {
	Kind   RelationKind
	Target string   // single target for require/refuse/recommend/bundle/extend
	Group  DepGroup // OR-group, for require relations emitted as a group
	Other  string   // second package, for compat(a, b)
}

// DeclarativePackage is a fully data-driven package.
type DeclarativePackage struct {
	ID               string              `json:"id"`
	Properties       Properties          `json:"properties"`
	Features         []string            `json:"features,omitempty"`
	Addons           []DeclarativeAddon  `json:"addons"`
	ConditionalRules []ConditionalRule   `json:"conditional_rules,omitempty"`
}

// ScriptPackage is a package driven by a small routine-based script.
type ScriptPackage struct {
	ID         string                `json:"id"`
	Properties Properties            `json:"properties"`
	Features   []string              `json:"features,omitempty"`
	Routines   map[string][]Instruction `json:"routines"`
}

// Instruction is one step of a script routine.
type Instruction struct {
	Op string // "if", "set", "addon", "relation", "notice", "cmd", "custom", "finish", "fail", "call"

	// if
	Cond     Expr
	Then     []Instruction
	Else     []Instruction

	// set
	Var   string
	Value Expr

	// addon
	Addon AddonRequest

	// relation
	Relation Relation

	// notice / fail / cmd / custom
	Text     string
	Args     []string

	// call
	Routine string
}

// Expr is a tiny boolean/string expression evaluated against the
// routine's variable environment and reserved constants.
type Expr struct {
	// Var references a variable or reserved constant (e.g. "$MCVM_MC_VERSION").
	Var string
	// Literal is used when Var is empty.
	Literal string
	// Eq/Neq compare Left against Right; and/or combine Left and Right;
	// not negates Left.
	Op string // "", "eq", "neq", "and", "or", "not"
	Left, Right *Expr
}
