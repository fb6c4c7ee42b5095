// Package conditions models access-control condition trees and the
// parameter substitution used to materialize them. Templates are closed
// tagged-variant trees mixing literal values and :name placeholders;
// every parameter passes Validate before it may reach a template, which
// is the injection-defense boundary for everything sent to the
// threshold-encryption provider.
package conditions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Node is one condition-tree node: String, Number, Bool, List or Object.
// Trees are never mutated after construction; Substitute returns a new
// tree.
type Node interface {
	isNode()
}

type (
	String string
	Number float64
	Bool   bool
	List   []Node
	Object map[string]Node
)

func (String) isNode() {}
func (Number) isNode() {}
func (Bool) isNode()   {}
func (List) isNode()   {}
func (Object) isNode() {}

// MarshalJSON renders the tree with plain JSON types so the provider
// sees ordinary objects/arrays/strings.
func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }
func (n Number) MarshalJSON() ([]byte, error) { return json.Marshal(float64(n)) }
func (b Bool) MarshalJSON() ([]byte, error)   { return json.Marshal(bool(b)) }

func (l List) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, len(l))
	for i, n := range l {
		raw, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return json.Marshal(out)
}

func (o Object) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(o))
	for k, n := range o {
		raw, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		out[k] = raw
	}
	return json.Marshal(out)
}

// ValidationError reports the parameter that failed validation. The
// raw value is echoed so operators can spot what was rejected.
type ValidationError struct {
	Key   string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid template parameter %s=%q", e.Key, e.Value)
}

var (
	keyPattern     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	chainPattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)
	addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	kidPattern     = regexp.MustCompile(`^0x[a-fA-F0-9]{32}$`)
	rpcPattern     = regexp.MustCompile(`^https?://.+$`)
)

// valuePatterns keys that carry a dedicated shape. Anything else only
// has to be free of quote and backslash characters.
var valuePatterns = map[string]*regexp.Regexp{
	"chain":       chainPattern,
	"authority":   addressPattern,
	"userAddress": addressPattern,
	"kid":         kidPattern,
	"rpc":         rpcPattern,
}

// Validate checks every parameter key and value and returns the
// stringified parameter set. Numbers are formatted without an exponent.
// Nothing from params may be substituted into a template unless it came
// out of Validate.
func Validate(params map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(params))
	for key, raw := range params {
		if !keyPattern.MatchString(key) {
			return nil, &ValidationError{Key: key, Value: fmt.Sprint(raw)}
		}
		var value string
		switch v := raw.(type) {
		case string:
			value = v
		case int:
			value = strconv.Itoa(v)
		case int64:
			value = strconv.FormatInt(v, 10)
		case float64:
			value = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, &ValidationError{Key: key, Value: fmt.Sprint(raw)}
		}
		if pattern, ok := valuePatterns[key]; ok {
			if !pattern.MatchString(value) {
				return nil, &ValidationError{Key: key, Value: value}
			}
		} else if strings.ContainsAny(value, `"'\`) {
			return nil, &ValidationError{Key: key, Value: value}
		}
		out[key] = value
	}
	return out, nil
}

// Substitute materializes a template against validated parameters.
// String leaves have every :name occurrence replaced literally; lists
// and objects are walked recursively; other leaves pass through. The
// walk is structure-preserving: no serialize/deserialize round trip.
func Substitute(template Node, params map[string]string) Node {
	switch n := template.(type) {
	case String:
		s := string(n)
		for name, value := range params {
			s = strings.ReplaceAll(s, ":"+name, value)
		}
		return String(s)
	case List:
		out := make(List, len(n))
		for i, child := range n {
			out[i] = Substitute(child, params)
		}
		return out
	case Object:
		out := make(Object, len(n))
		for k, child := range n {
			out[k] = Substitute(child, params)
		}
		return out
	default:
		return template
	}
}
