package bmscript

import "testing"

func newTestEvaluator() (*Evaluator, *Registry) {
	reg := NewRegistry()
	return NewEvaluator(reg, nil), reg
}

func TestEvaluate_Literals(t *testing.T) {
	e, _ := newTestEvaluator()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"integer", "5", float64(5)},
		{"float", "1.25", float64(1.25)},
		{"negative", "-4", float64(-4)},
		{"string", "wood", "wood"},
		{"color literal", "#ff0000", "#ff0000"},
		{"non-string passthrough", float64(7), float64(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Evaluate(tt.in); got != tt.want {
				t.Errorf("Evaluate(%v) = %v (%T), want %v", tt.in, got, got, tt.want)
			}
		})
	}
}

func TestEvaluate_VariableReferences(t *testing.T) {
	e, reg := newTestEvaluator()
	reg.Set("size", float64(3))
	reg.Set("label", "front")
	reg.Set("alias", "$size")

	tests := []struct {
		name string
		in   string
		want any
	}{
		{"numeric ref", "$size", float64(3)},
		{"negated ref", "-$size", float64(-3)},
		{"string ref", "$label", "front"},
		{"chained ref", "$alias", float64(3)},
		{"unknown ref", "$missing", float64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Evaluate(tt.in); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEvaluate_OverridesShadowScriptBindings(t *testing.T) {
	e, reg := newTestEvaluator()
	reg.Set("size", float64(3))
	reg.SetOverride("size", float64(10))

	if got := e.Evaluate("$size"); got != float64(10) {
		t.Errorf("override not consulted first: got %v", got)
	}

	// Script reassignment must not remove the override.
	reg.Set("size", float64(4))
	if got := e.Evaluate("$size"); got != float64(10) {
		t.Errorf("override destroyed by script reassignment: got %v", got)
	}
}

func TestEvaluate_Arithmetic(t *testing.T) {
	e, reg := newTestEvaluator()
	reg.Set("w", float64(4))
	reg.Set("h", float64(2))

	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"plain expr", "1 + 2", 3},
		{"var expr", "$w + 1", 5},
		{"two vars", "$w * $h", 8},
		{"parenthesized", "($w + $h) / 2", 3},
		{"repeated var", "$w + $w", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Evaluate(tt.in); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEvaluate_CircularReference(t *testing.T) {
	e, reg := newTestEvaluator()
	reg.Set("x", "$y + 1")
	reg.Set("y", "$x + 1")

	if got := e.Evaluate("$x"); got != float64(0) {
		t.Errorf("circular $x = %v, want 0", got)
	}
	if got := e.Evaluate("$y"); got != float64(0) {
		t.Errorf("circular $y = %v, want 0", got)
	}

	// Direct self-reference.
	reg.Set("self", "$self")
	if got := e.Evaluate("$self"); got != float64(0) {
		t.Errorf("self-referential variable = %v, want 0", got)
	}
}

func TestEvaluate_SharedDependencyIsNotCircular(t *testing.T) {
	e, reg := newTestEvaluator()
	reg.Set("z", float64(5))
	reg.Set("a", "$z + 1")
	reg.Set("b", "$z + 2")

	if got := e.Evaluate("$a + $b"); got != float64(13) {
		t.Errorf("diamond dependency = %v, want 13", got)
	}
}

func TestEvaluate_MalformedExpressionReturnsRaw(t *testing.T) {
	e, _ := newTestEvaluator()

	in := "1 + * 2"
	if got := e.Evaluate(in); got != in {
		t.Errorf("malformed expression = %v, want original %q", got, in)
	}
}

func TestEvaluator_Number(t *testing.T) {
	e, reg := newTestEvaluator()
	reg.Set("n", float64(2.5))

	tests := []struct {
		in   string
		want float64
	}{
		{"3", 3},
		{"$n", 2.5},
		{"$n * 2", 5},
		{"wood", 0},
		{"$missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := e.Number(tt.in); got != tt.want {
				t.Errorf("Number(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
