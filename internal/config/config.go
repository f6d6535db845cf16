package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/literal"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"
)

// ScriptMarker prefixes a script-style config document.
const ScriptMarker = "module.exports"

// Config is a single parsed configuration document.
type Config struct {
	// Source is the file the document came from, or "<inline>".
	Source string

	fields map[string]any
	raw    json.RawMessage // compact JSON, key order as written
}

// Fields returns the decoded top-level object.
func (c *Config) Fields() map[string]any {
	return c.fields
}

// JSON returns the document as compact JSON, preserving key order.
// This is the filter handed to the chain engine.
func (c *Config) JSON() json.RawMessage {
	return c.raw
}

// HasMarker reports whether the document carries a truthy "eventchain" key.
func (c *Config) HasMarker() bool {
	return truthy(c.fields["eventchain"])
}

// Name returns the watch definition name, or "" if unset.
func (c *Config) Name() string {
	s, _ := c.fields["name"].(string)
	return s
}

// Dest returns the alternate output root named by "dest" (or the older
// "tape" key), or "" if neither is set.
func (c *Config) Dest() string {
	for _, key := range []string{"dest", "tape"} {
		if s, ok := c.fields[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Parse decodes a configuration document.
//
// Text beginning with "module.exports" is treated as a script-style config:
// the object literal after the "=" is evaluated declaratively with CUE, which
// accepts unquoted keys, single-quoted strings, comments and trailing commas
// but never executes code.
// Anything else must be a JSON object.
func Parse(text []byte, source string) (*Config, error) {
	trimmed := bytes.TrimSpace(text)

	var raw []byte
	if bytes.HasPrefix(trimmed, []byte(ScriptMarker)) {
		var err error
		raw, err = evalScript(string(trimmed[len(ScriptMarker):]))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
	} else {
		raw = trimmed
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%s: parse JSON: %w", source, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%s: config must be a JSON object", source)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("%s: compact JSON: %w", source, err)
	}

	return &Config{
		Source: source,
		fields: fields,
		raw:    compact.Bytes(),
	}, nil
}

// evalScript evaluates the right-hand side of `module.exports = {...};`.
func evalScript(rest string) ([]byte, error) {
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "=") {
		return nil, fmt.Errorf("script config: expected '=' after %s", ScriptMarker)
	}
	rest = strings.TrimSpace(rest[1:])
	rest = strings.TrimSuffix(rest, ";")

	f, err := parser.ParseFile("config.js", rest)
	if err != nil {
		return nil, fmt.Errorf("script config: %w", err)
	}
	if err := normalizeScript(f); err != nil {
		return nil, fmt.Errorf("script config: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildFile(f)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("script config: %w", err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, fmt.Errorf("script config: module.exports must be an object")
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("script config: %w", err)
	}

	out, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("script config: %w", err)
	}
	return out, nil
}

// normalizeScript rewrites the parts of an object literal where CUE and
// JavaScript disagree, so the evaluated document matches what the author
// wrote. Single-quoted strings are text, not bytes, and _-prefixed keys are
// ordinary keys, not hidden fields. #-prefixed keys are not valid in an
// object literal and are rejected.
func normalizeScript(f *ast.File) error {
	var err error
	ast.Walk(f, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		switch x := n.(type) {
		case *ast.Field:
			id, ok := x.Label.(*ast.Ident)
			if !ok {
				break
			}
			switch {
			case strings.HasPrefix(id.Name, "#"), strings.HasPrefix(id.Name, "_#"):
				err = fmt.Errorf("invalid key %s", id.Name)
				return false
			case strings.HasPrefix(id.Name, "_") && id.Name != "_":
				x.Label = ast.NewString(id.Name)
			}
		case *ast.BasicLit:
			if x.Kind != token.STRING || !strings.HasPrefix(x.Value, "'") {
				break
			}
			text, uerr := literal.Unquote(x.Value)
			if uerr != nil {
				err = fmt.Errorf("string %s: %w", x.Value, uerr)
				return false
			}
			x.Value = literal.String.Quote(text)
		}
		return true
	}, nil)
	return err
}

// truthy mirrors the loose truthiness config authors expect:
// null, false, 0, "" and a missing key all count as unset.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
