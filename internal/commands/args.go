package commands

import (
	"fmt"
	"strconv"
	"strings"
)

// Validator checks and transforms one raw argument token.
type Validator func(raw string) (any, error)

// ArgSpec describes one positional argument of a command.
type ArgSpec struct {
	Name      string
	Validator Validator
	Optional  bool
	Default   any
	// Rest coalesces this and every following token into one string.
	// Only valid on the last spec.
	Rest bool
	// Example overrides the name in help rendering.
	Example string
}

func (a ArgSpec) label() string {
	if a.Example != "" {
		return a.Example
	}
	return "<" + a.Name + ">"
}

// NonEmpty accepts any non-empty token as-is.
func NonEmpty(raw string) (any, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty value")
	}
	return raw, nil
}

// Int coerces the token to an integer.
func Int(raw string) (any, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", raw)
	}
	return v, nil
}

// IntRange coerces to an integer constrained to [lo, hi].
func IntRange(lo, hi int) Validator {
	return func(raw string) (any, error) {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		if v < lo || v > hi {
			return nil, fmt.Errorf("%d is out of range [%d, %d]", v, lo, hi)
		}
		return v, nil
	}
}

// OneOf accepts only the listed values, case-insensitively, and returns the
// canonical (listed) spelling.
func OneOf(values ...string) Validator {
	return func(raw string) (any, error) {
		for _, v := range values {
			if strings.EqualFold(raw, v) {
				return v, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %s", raw, strings.Join(values, ", "))
	}
}

// checkSpecs enforces the registration-time invariants: required args never
// follow optional ones, rest only on the last spec. Violations are programmer
// errors, caught at plugin load.
func checkSpecs(name string, specs []ArgSpec) {
	optional := false
	for i, s := range specs {
		if s.Validator == nil {
			panic(fmt.Sprintf("commands: %s: arg %q has no validator", name, s.Name))
		}
		if s.Rest && i != len(specs)-1 {
			panic(fmt.Sprintf("commands: %s: rest arg %q is not last", name, s.Name))
		}
		if s.Optional {
			optional = true
		} else if optional {
			panic(fmt.Sprintf("commands: %s: required arg %q follows an optional one", name, s.Name))
		}
	}
}

// Bind pairs tokens with specs and returns the validated value map. A missing
// required token, a validator rejection or an excess token is a *SyntaxError.
func Bind(specs []ArgSpec, tokens []string) (map[string]any, error) {
	if n := len(specs); n > 0 && specs[n-1].Rest && len(tokens) >= n {
		rest := strings.Join(tokens[n-1:], " ")
		tokens = append(append([]string(nil), tokens[:n-1]...), rest)
	}
	if len(tokens) > len(specs) {
		return nil, &SyntaxError{Cause: "too many arguments"}
	}

	args := make(map[string]any, len(specs))
	for i, spec := range specs {
		if i >= len(tokens) {
			if !spec.Optional {
				return nil, &SyntaxError{Cause: fmt.Sprintf("missing %s", spec.Name)}
			}
			args[spec.Name] = spec.Default
			continue
		}
		v, err := spec.Validator(tokens[i])
		if err != nil {
			return nil, &SyntaxError{Cause: err.Error()}
		}
		args[spec.Name] = v
	}
	return args, nil
}

// syntaxLine renders the one-line usage help for a command: required args in
// <…>, optional ones in […].
func syntaxLine(name string, specs []ArgSpec) string {
	parts := make([]string, 0, len(specs)+1)
	parts = append(parts, "Syntax: !"+name)
	for _, s := range specs {
		if s.Optional {
			parts = append(parts, "["+s.label()+"]")
		} else {
			parts = append(parts, s.label())
		}
	}
	return strings.Join(parts, " ")
}
