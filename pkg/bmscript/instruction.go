package bmscript

import (
	"regexp"
	"strings"

	"github.com/bastecklein/bmloader/pkg/scene"
)

// animRefPattern matches an animation-name reference like "@spin".
var animRefPattern = regexp.MustCompile(`^@[A-Za-z_][A-Za-z0-9_]*$`)

// CommentMarker starts a comment line. Comment lines are skipped by the
// interpreter but recorded verbatim so a reset can reconstruct the script.
const CommentMarker = "//"

// ModifierKind tags the classified instruction variants. The builder
// dispatches on the tag through a handler table instead of chained prefix
// checks.
type ModifierKind int

const (
	ModUnknown    ModifierKind = iota
	ModVarRef                  // $name
	ModAnimRef                 // @name
	ModGroupStart              // startgroup()
	ModGroupEnd                // endgroup()
	ModPrimitive               // box(...), sphere(...), ...
	ModAdd                     // add($target)
	ModTransform               // position/rotate/scale/opacity/orientation/material/geotranslate/bottomalign
	ModValue                   // bare literal value
)

// Modifier is one classified chain element of an instruction line.
type Modifier struct {
	Kind ModifierKind
	Name string   // identifier: variable/animation name or instruction keyword
	Args []string // raw parenthesized arguments, comma-split and trimmed
	Raw  string
}

// Line is one normalized instruction line.
type Line struct {
	Raw       string
	Comment   bool
	Assign    string // leading "$name =" target, without the sigil
	Modifiers []Modifier
}

// transformKeywords is the set of transform/material instruction names.
var transformKeywords = map[string]bool{
	"position":     true,
	"rotate":       true,
	"scale":        true,
	"opacity":      true,
	"orientation":  true,
	"material":     true,
	"geotranslate": true,
	"bottomalign":  true,
}

// SplitStatements normalizes script text into instruction lines: split on
// statement separators and newlines, trim whitespace, drop empties. A
// comment marker runs to the end of its physical line, so separators
// inside a comment never start a statement.
func SplitStatements(script string) []string {
	var out []string
	for _, line := range strings.FieldsFunc(script, func(r rune) bool {
		return r == '\n' || r == '\r'
	}) {
		code := line
		comment := ""
		if i := strings.Index(line, CommentMarker); i >= 0 {
			code = line[:i]
			comment = strings.TrimSpace(line[i:])
		}
		for _, chunk := range strings.Split(code, ";") {
			chunk = strings.TrimSpace(chunk)
			if chunk != "" {
				out = append(out, chunk)
			}
		}
		if comment != "" {
			out = append(out, comment)
		}
	}
	return out
}

// ParseLine classifies one instruction line: an optional leading
// assignment prefix, then a left-to-right chain of modifiers.
func ParseLine(raw string) Line {
	line := Line{Raw: raw}
	rest := strings.TrimSpace(raw)

	if strings.HasPrefix(rest, CommentMarker) {
		line.Comment = true
		return line
	}

	// Optional "$name =" assignment prefix. The language has no comparison
	// operators at statement level, so a bare '=' after a variable
	// reference is enough.
	if strings.HasPrefix(rest, "$") {
		if eq := strings.Index(rest, "="); eq > 0 {
			head := strings.TrimSpace(rest[:eq])
			if bareRefPattern.MatchString(head) && !strings.HasPrefix(head, "-") {
				line.Assign = strings.TrimPrefix(head, "$")
				rest = strings.TrimSpace(rest[eq+1:])
			}
		}
	}

	// "@name = ..." defines an animation: the whole remainder of the line
	// becomes animation instructions on that track.
	if strings.HasPrefix(rest, "@") {
		if eq := strings.Index(rest, "="); eq > 0 {
			head := strings.TrimSpace(rest[:eq])
			if animRefPattern.MatchString(head) {
				line.Modifiers = append(line.Modifiers, Modifier{
					Kind: ModAnimRef,
					Name: strings.TrimPrefix(head, "@"),
					Raw:  head,
				})
				rest = strings.TrimSpace(rest[eq+1:])
			}
		}
	}

	for _, part := range strings.Split(rest, ">") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		line.Modifiers = append(line.Modifiers, classifyModifier(part))
	}
	return line
}

// classifyModifier tags a single chain element.
func classifyModifier(raw string) Modifier {
	mod := Modifier{Raw: raw}

	switch {
	case strings.HasPrefix(raw, "$") && bareRefPattern.MatchString(raw):
		mod.Kind = ModVarRef
		mod.Name = strings.TrimPrefix(raw, "$")
		return mod
	case animRefPattern.MatchString(raw):
		mod.Kind = ModAnimRef
		mod.Name = strings.TrimPrefix(raw, "@")
		return mod
	}

	open := strings.Index(raw, "(")
	if open < 0 {
		mod.Kind = ModValue
		mod.Name = raw
		return mod
	}

	name := strings.TrimSpace(raw[:open])
	mod.Name = name
	end := strings.LastIndex(raw, ")")
	if end > open {
		mod.Args = splitArgs(raw[open+1 : end])
	}

	switch {
	case name == "startgroup":
		mod.Kind = ModGroupStart
	case name == "endgroup":
		mod.Kind = ModGroupEnd
	case name == "add":
		mod.Kind = ModAdd
	case transformKeywords[name]:
		mod.Kind = ModTransform
	case scene.KnownShape(name):
		mod.Kind = ModPrimitive
	default:
		// Inside an animation definition these become animation
		// instructions; elsewhere the builder logs and skips them.
		mod.Kind = ModUnknown
	}
	return mod
}

// splitArgs splits a parenthesized argument list on commas.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
