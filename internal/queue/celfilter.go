package queue

import (
	"encoding/json"
	"strings"

	"github.com/google/cel-go/cel"
)

// entryFilter wraps a compiled CEL program evaluated per entry by the entries
// listing endpoint. When disabled (empty expression), Eval always returns true.
type entryFilter struct {
	prog    cel.Program
	enabled bool
}

func newEntryFilter(expr string) (entryFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return entryFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.IntType),
		cel.Variable("status", cel.StringType),
		cel.Variable("message", cel.StringType),
		cel.Variable("execution_name", cel.StringType),
		cel.Variable("gcs_prefix", cel.StringType),
		// Parsed params blob for field filtering, e.g. params.country == "DE"
		cel.Variable("params", cel.DynType),
	)
	if err != nil {
		return entryFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return entryFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return entryFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return entryFilter{}, err
	}
	return entryFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against an entry. Evaluation errors count as
// a non-match.
func (f entryFilter) Eval(ent *JobEntry) bool {
	if !f.enabled {
		return true
	}
	var params any
	_ = json.Unmarshal(ent.Params, &params)

	out, _, err := f.prog.Eval(map[string]any{
		"id":             ent.ID,
		"status":         string(ent.Status),
		"message":        ent.Message,
		"execution_name": ent.ExecutionName,
		"gcs_prefix":     ent.GCSPrefix,
		"params":         params,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
