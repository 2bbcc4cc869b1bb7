package domain

import (
	"regexp"
	"strconv"

	"go.trai.ch/zerr"
)

// Context is an ordered variable mapping used for template resolution. The
// Global Context carries general and profile variables; the Local Context adds
// the step's resolved output and input list once those exist.
type Context struct {
	keys []string
	vals map[string]Value
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{vals: make(map[string]Value)}
}

// Set stores a variable. Re-setting an existing key replaces the value but
// keeps the original position.
func (c *Context) Set(key string, v Value) {
	if _, ok := c.vals[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.vals[key] = v
}

// Get looks up a variable.
func (c *Context) Get(key string) (Value, bool) {
	v, ok := c.vals[key]
	return v, ok
}

// Keys returns the variable names in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Clone returns an independent copy. Used to derive the Local Context from
// the Global Context without mutating it.
func (c *Context) Clone() *Context {
	out := NewContext()
	for _, k := range c.keys {
		out.Set(k, c.vals[k])
	}
	return out
}

// placeholderPattern matches {KEY} and {KEY[n]} template tokens.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?:\[([0-9]+)\])?\}`)

// commandLeftoverPattern flags unresolved tokens in assembled commands. It
// only matches uppercase-style tokens so shell constructs like awk '{print}'
// or ${VAR} pass through untouched.
var commandLeftoverPattern = regexp.MustCompile(`\{[A-Z][A-Za-z0-9_]*(?:\[[0-9]+\])?\}`)

// maxResolvePasses bounds iterative resolution of nested variables, e.g. a
// BUILD_DIR value that itself references {REGION}.
const maxResolvePasses = 5

// Resolve substitutes {KEY} and {KEY[n]} tokens against the context,
// iterating so nested variable values resolve too. Any token left after the
// final pass is a hard error naming the missing key and the template site.
func (c *Context) Resolve(site, template string) (string, error) {
	resolved, err := c.substitute(site, template)
	if err != nil {
		return "", err
	}
	if m := placeholderPattern.FindStringSubmatch(resolved); m != nil {
		return "", zerr.With(zerr.With(zerr.With(ErrUnresolvedVariable,
			"key", m[1]),
			"site", site),
			"template", template)
	}
	return resolved, nil
}

// ResolveCommand is the lenient variant for final command assembly: only
// uppercase placeholder-style leftovers are rejected, so literal shell braces
// survive.
func (c *Context) ResolveCommand(site, template string) (string, error) {
	resolved, err := c.substitute(site, template)
	if err != nil {
		return "", err
	}
	for _, loc := range commandLeftoverPattern.FindAllStringIndex(resolved, -1) {
		// A '$' before the brace makes it shell parameter expansion, not ours.
		if loc[0] > 0 && resolved[loc[0]-1] == '$' {
			continue
		}
		return "", zerr.With(zerr.With(zerr.With(ErrUnresolvedVariable,
			"key", resolved[loc[0]:loc[1]]),
			"site", site),
			"template", template)
	}
	return resolved, nil
}

func (c *Context) substitute(site, template string) (string, error) {
	var indexErr error
	resolved := template
	for range maxResolvePasses {
		prev := resolved
		resolved = placeholderPattern.ReplaceAllStringFunc(resolved, func(tok string) string {
			m := placeholderPattern.FindStringSubmatch(tok)
			v, ok := c.vals[m[1]]
			if !ok {
				return tok
			}
			if m[2] == "" {
				return v.String()
			}
			n, _ := strconv.Atoi(m[2])
			item, ok := v.Index(n)
			if !ok && indexErr == nil {
				indexErr = zerr.With(zerr.With(zerr.With(ErrIndexOutOfRange,
					"key", m[1]),
					"index", n),
					"site", site)
			}
			return item
		})
		if indexErr != nil {
			return "", indexErr
		}
		if prev == resolved {
			break
		}
	}
	return resolved, nil
}

// forbiddenParameterTokens are the late-bound placeholders that must never
// appear inside a PARAMETERS value: parameters resolve before any of these
// values exist.
var forbiddenParameterTokens = []string{"OUTPUT", "INPUTS", "PARAMETERS", "POSITIONAL_FILENAMES"}

// CheckParameterTemplate statically rejects parameter values that reference
// late-bound placeholders, before any substitution is attempted.
func CheckParameterTemplate(step, key, template string) error {
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		for _, forbidden := range forbiddenParameterTokens {
			if m[1] == forbidden {
				return zerr.With(zerr.With(zerr.With(ErrForbiddenPlaceholder,
					"placeholder", m[0]),
					"step", step),
					"parameter", key)
			}
		}
	}
	return nil
}
