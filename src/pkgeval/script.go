package pkgeval

import (
	"fmt"

	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgformat"
)

// CustomHook routes a `custom` instruction to the plugin host,
// returning the partial EvalData it contributes.
type CustomHook func(command string, args []string) (Data, error)

// scriptState is the interpreter's mutable environment for one
// evaluation pass.
type scriptState struct {
	vars   map[string]string
	data   Data
	finished bool
}

func reservedConstants(in Input) map[string]string {
	return map[string]string{
		"$MCVM_MC_VERSION":  in.Constants.Version,
		"$MCVM_MODLOADER":   in.Constants.Modloader,
		"$MCVM_CLIENT_TYPE": in.Constants.ClientType,
		"$MCVM_SERVER_TYPE": in.Constants.ServerType,
		"$MCVM_SIDE":        in.Params.Side,
		"$MCVM_LANGUAGE":    in.Constants.Language,
	}
}

func evalExpr(e pkgformat.Expr, env map[string]string) (string, error) {
	if e.Op == "" {
		if e.Var != "" {
			if v, ok := env[e.Var]; ok {
				return v, nil
			}
			return "", fmt.Errorf("undefined variable %q", e.Var)
		}
		return e.Literal, nil
	}
	switch e.Op {
	case "eq", "neq":
		l, err := evalExpr(*e.Left, env)
		if err != nil {
			return "", err
		}
		r, err := evalExpr(*e.Right, env)
		if err != nil {
			return "", err
		}
		eq := l == r
		if e.Op == "neq" {
			eq = !eq
		}
		return boolStr(eq), nil
	case "and", "or", "not":
		l, err := evalExpr(*e.Left, env)
		if err != nil {
			return "", err
		}
		if e.Op == "not" {
			return boolStr(l != "true"), nil
		}
		r, err := evalExpr(*e.Right, env)
		if err != nil {
			return "", err
		}
		if e.Op == "and" {
			return boolStr(l == "true" && r == "true"), nil
		}
		return boolStr(l == "true" || r == "true"), nil
	default:
		return "", fmt.Errorf("unknown expression operator %q", e.Op)
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RunScript evaluates the named routine of pkg, returning the
// accumulated EvalData. Nested routine calls are limited to
// maxCallDepth levels.
func RunScript(pkg pkgformat.ScriptPackage, routineName string, in Input, perm Permission, custom CustomHook) (Data, error) {
	applies, err := CheckProperties(pkg.Properties, in)
	if err != nil {
		return Data{}, &mcerrors.EvaluationError{Package: pkg.ID, Reason: err.Error()}
	}
	if !applies {
		return Data{}, nil
	}

	env := reservedConstants(in)
	for _, f := range in.Params.Features {
		env["$"+f] = "true"
	}
	st := &scriptState{vars: env}

	routine, ok := pkg.Routines[routineName]
	if !ok {
		return Data{}, &mcerrors.EvaluationError{Package: pkg.ID, Reason: fmt.Sprintf("no routine named %q", routineName)}
	}
	if err := runBlock(pkg, st, routine, perm, custom, 0); err != nil {
		return Data{}, err
	}
	if err := boundNotices(&st.data); err != nil {
		return Data{}, &mcerrors.EvaluationError{Package: pkg.ID, Reason: err.Error()}
	}
	return st.data, nil
}

const maxCallDepth = 16

func runBlock(pkg pkgformat.ScriptPackage, st *scriptState, block []pkgformat.Instruction, perm Permission, custom CustomHook, depth int) error {
	for _, instr := range block {
		if st.finished {
			return nil
		}
		if err := runInstruction(pkg, st, instr, perm, custom, depth); err != nil {
			return err
		}
	}
	return nil
}

func runInstruction(pkg pkgformat.ScriptPackage, st *scriptState, instr pkgformat.Instruction, perm Permission, custom CustomHook, depth int) error {
	switch instr.Op {
	case "if":
		cond, err := evalExpr(instr.Cond, st.vars)
		if err != nil {
			return &mcerrors.EvaluationError{Package: pkg.ID, Reason: err.Error()}
		}
		branch := instr.Else
		if cond == "true" {
			branch = instr.Then
		}
		return runBlock(pkg, st, branch, perm, custom, depth)

	case "set":
		v, err := evalExpr(instr.Value, st.vars)
		if err != nil {
			return &mcerrors.EvaluationError{Package: pkg.ID, Reason: err.Error()}
		}
		st.vars[instr.Var] = v
		return nil

	case "addon":
		req := instr.Addon
		if err := validateAddonRequest(pkg.ID, &req, perm); err != nil {
			return err
		}
		st.data.AddonReqs = append(st.data.AddonReqs, req)
		return nil

	case "relation":
		applyRelations(&st.data, []pkgformat.Relation{instr.Relation})
		return nil

	case "notice":
		st.data.Notices = append(st.data.Notices, instr.Text)
		return nil

	case "cmd":
		if perm != PermissionElevated {
			return &mcerrors.PermissionError{Package: pkg.ID, Permission: "elevated"}
		}
		st.data.Commands = append(st.data.Commands, append([]string{instr.Text}, instr.Args...))
		return nil

	case "custom":
		st.data.UsesCustomInstructions = true
		if custom == nil {
			return &mcerrors.EvaluationError{Package: pkg.ID, Reason: fmt.Sprintf("no plugin handled custom instruction %q", instr.Text)}
		}
		partial, err := custom(instr.Text, instr.Args)
		if err != nil {
			return err
		}
		mergePartial(&st.data, partial)
		return nil

	case "call":
		if depth >= maxCallDepth {
			return &mcerrors.EvaluationError{Package: pkg.ID, Reason: "routine call depth exceeded"}
		}
		routine, ok := pkg.Routines[instr.Routine]
		if !ok {
			return &mcerrors.EvaluationError{Package: pkg.ID, Reason: fmt.Sprintf("no routine named %q", instr.Routine)}
		}
		return runBlock(pkg, st, routine, perm, custom, depth+1)

	case "finish":
		st.finished = true
		return nil

	case "fail":
		return &mcerrors.EvaluationError{Package: pkg.ID, Reason: instr.Text}

	default:
		return &mcerrors.EvaluationError{Package: pkg.ID, Reason: fmt.Sprintf("unknown instruction %q", instr.Op)}
	}
}

func mergePartial(data *Data, partial Data) {
	data.AddonReqs = append(data.AddonReqs, partial.AddonReqs...)
	data.Deps = append(data.Deps, partial.Deps...)
	data.Conflicts = append(data.Conflicts, partial.Conflicts...)
	data.Recommendations = append(data.Recommendations, partial.Recommendations...)
	data.Bundled = append(data.Bundled, partial.Bundled...)
	data.Compats = append(data.Compats, partial.Compats...)
	data.Extensions = append(data.Extensions, partial.Extensions...)
	data.Notices = append(data.Notices, partial.Notices...)
}
