package bmscript

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"go.uber.org/zap"
)

var (
	bareRefPattern = regexp.MustCompile(`^-?\$[A-Za-z_][A-Za-z0-9_]*$`)
	varRefPattern  = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// Evaluator resolves textual values (literals, variable references,
// negated references, and arithmetic expressions over variables) through
// a registry. Malformed scripts never raise: circular references soft-fail
// to 0 and malformed expressions soft-fail to the raw string, each with a
// logged diagnostic.
type Evaluator struct {
	reg *Registry
	log *zap.Logger
}

// NewEvaluator creates an evaluator over the given registry. A nil logger
// defaults to a no-op logger.
func NewEvaluator(reg *Registry, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{reg: reg, log: log}
}

// evalCtx tracks visited names during recursive resolution. Once a cycle
// is seen, the whole evaluation collapses to 0.
type evalCtx struct {
	visited  map[string]bool
	circular bool
}

// Evaluate resolves raw to a concrete value: float64, string, or whatever
// the registry binding holds (e.g. a scene node). Non-string input is
// returned unchanged.
func (e *Evaluator) Evaluate(raw any) any {
	return e.eval(raw, &evalCtx{visited: make(map[string]bool)})
}

// Number resolves raw to a float64, coercing or soft-failing to 0.
func (e *Evaluator) Number(raw string) float64 {
	return toNumber(e.Evaluate(raw))
}

// Value resolves raw to its concrete result. Satisfies anim.Resolver.
func (e *Evaluator) Value(raw string) any {
	return e.Evaluate(raw)
}

func (e *Evaluator) eval(raw any, ctx *evalCtx) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	s = strings.TrimSpace(s)

	// Bare (possibly negated) variable reference.
	if bareRefPattern.MatchString(s) {
		neg := s[0] == '-'
		name := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "$")
		v := e.resolveName(name, ctx)
		if ctx.circular {
			return float64(0)
		}
		if neg {
			if f, isNum := v.(float64); isNum {
				return -f
			}
		}
		return v
	}

	// Plain literal: numeric or string.
	if !strings.ContainsAny(s, "+-*/%(") && !strings.Contains(s, "$") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	// Arithmetic expression, possibly over variables. Rewrite $name tokens
	// to bare identifiers and bind them through this same evaluator.
	params := make(map[string]any)
	for _, m := range varRefPattern.FindAllStringSubmatch(s, -1) {
		name := m[1]
		if _, seen := params[name]; seen {
			continue
		}
		params[name] = toNumber(e.resolveName(name, ctx))
	}
	rewritten := varRefPattern.ReplaceAllString(s, "$1")

	expr, err := govaluate.NewEvaluableExpression(rewritten)
	if err != nil {
		e.log.Debug("unparseable expression", zap.String("expr", s), zap.Error(err))
		return s
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		e.log.Debug("expression evaluation failed", zap.String("expr", s), zap.Error(err))
		return s
	}
	if ctx.circular {
		return float64(0)
	}
	if f, isNum := result.(float64); isNum {
		return f
	}
	return result
}

// resolveName resolves one variable name recursively, guarding against
// reference cycles. The visited set tracks the current resolution path
// only, so two names sharing a common dependency are not a cycle. Unknown
// names resolve to 0.
func (e *Evaluator) resolveName(name string, ctx *evalCtx) any {
	if ctx.visited[name] {
		ctx.circular = true
		e.log.Warn("circular variable reference", zap.String("name", name))
		return float64(0)
	}
	ctx.visited[name] = true
	defer delete(ctx.visited, name)

	v, ok := e.reg.Get(name)
	if !ok {
		e.log.Debug("undefined variable", zap.String("name", name))
		return float64(0)
	}
	return e.eval(v, ctx)
}

// toNumber coerces an evaluation result to float64, defaulting to 0.
func toNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return 0
}
