// File: internal/normalize/normalize.go

// Package normalize extracts a single well-formed JSON object from a raw
// backend reply and validates it against the task's response contract.
//
// The backend's grounded-search mode cannot guarantee schema-conforming
// output and commonly wraps JSON in prose or markdown fencing, so extraction
// is a layered fallback chain: direct parse (schema-enforced calls only),
// then a fenced json code block, then the first-'{'-to-last-'}' substring.
// Each extractor is total and never throws; the first candidate that parses
// wins. New fence styles can be supported by appending an extractor.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorKind classifies why a reply failed normalization.
type ErrorKind int

const (
	// MalformedResponse means no parseable JSON could be extracted by any
	// fallback step.
	MalformedResponse ErrorKind = iota
	// SchemaViolation means JSON parsed but did not conform to the response
	// contract; Field names the offending field.
	SchemaViolation
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedResponse:
		return "malformed_response"
	case SchemaViolation:
		return "schema_violation"
	default:
		return "unknown"
	}
}

// Error is a classified normalization failure. Terminal for the request; the
// orchestrator collapses it into the generic failed outcome and logs the
// detail.
type Error struct {
	Kind  ErrorKind
	Field string // dotted path of the violated field, when Kind is SchemaViolation
	cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case SchemaViolation:
		if e.Field != "" {
			return fmt.Sprintf("schema violation at field %q", e.Field)
		}
		return "schema violation"
	default:
		return "no parseable JSON object in backend reply"
	}
}

func (e *Error) Unwrap() error { return e.cause }

// extractor pulls one JSON candidate out of a raw reply. It reports false
// when its pattern is absent; it never fails.
type extractor func(raw string) (string, bool)

// The ordered fallback chain for unenforced replies.
var extractors = []extractor{extractFencedJSON, extractBraceSpan}

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

func extractFencedJSON(raw string) (string, bool) {
	m := fencedJSONRe.FindStringSubmatch(raw)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return "", false
	}
	return m[1], true
}

func extractBraceSpan(raw string) (string, bool) {
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first == -1 || last == -1 || last <= first {
		return "", false
	}
	return raw[first : last+1], true
}

// Decode normalizes a raw reply against a contract and unmarshals it into
// out. schemaEnforced indicates whether the invocation used backend schema
// enforcement, which makes a direct parse of the whole reply worth trying
// before the fallbacks. The returned error is always a classified *Error.
func Decode(raw string, schemaEnforced bool, contract schemas.Contract, out any) error {
	doc, payload, err := document(raw, schemaEnforced)
	if err != nil {
		return err
	}
	if err := validateObject(doc, contract.Fields, ""); err != nil {
		return err
	}
	if err := json.UnmarshalFromString(payload, out); err != nil {
		// Parsed and contract-valid, but an optional field carried a type the
		// result struct cannot hold.
		return &Error{Kind: SchemaViolation, cause: err}
	}
	return nil
}

// document runs the extraction chain and returns the first candidate that
// parses as a JSON object, both decoded and as the raw payload string.
func document(raw string, schemaEnforced bool) (map[string]any, string, error) {
	raw = strings.TrimSpace(raw)

	var candidates []string
	if schemaEnforced {
		candidates = append(candidates, raw)
	}
	for _, ex := range extractors {
		if payload, ok := ex(raw); ok {
			candidates = append(candidates, payload)
		}
	}

	var lastErr error
	for _, payload := range candidates {
		var doc map[string]any
		if err := json.UnmarshalFromString(payload, &doc); err != nil {
			lastErr = err
			continue
		}
		return doc, payload, nil
	}
	return nil, "", &Error{Kind: MalformedResponse, cause: lastErr}
}

func violation(path string) error {
	return &Error{Kind: SchemaViolation, Field: path}
}

// validateObject checks the decoded document against the contract's field
// specs. Required fields must be present, and any present field (required or
// not) must carry the declared type; a result is never partially valid.
func validateObject(obj map[string]any, fields []schemas.FieldSpec, path string) error {
	for _, f := range fields {
		p := f.Name
		if path != "" {
			p = path + "." + f.Name
		}
		v, ok := obj[f.Name]
		if !ok || v == nil {
			if f.Required {
				return violation(p)
			}
			continue
		}
		if err := validateValue(v, f, p); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(v any, f schemas.FieldSpec, path string) error {
	switch f.Kind {
	case schemas.KindString:
		s, ok := v.(string)
		if !ok {
			return violation(path)
		}
		if len(f.Enum) > 0 && !containsString(f.Enum, s) {
			return violation(path)
		}
	case schemas.KindNumber:
		// jsoniter's std-compatible config decodes every JSON number to float64.
		if _, ok := v.(float64); !ok {
			return violation(path)
		}
	case schemas.KindBoolean:
		if _, ok := v.(bool); !ok {
			return violation(path)
		}
	case schemas.KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return violation(path)
		}
		return validateObject(m, f.Fields, path)
	case schemas.KindArray:
		arr, ok := v.([]any)
		if !ok {
			return violation(path)
		}
		if f.Elem != nil {
			for i, el := range arr {
				if el == nil {
					return violation(fmt.Sprintf("%s[%d]", path, i))
				}
				if err := validateValue(el, *f.Elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	case schemas.KindStringMap:
		m, ok := v.(map[string]any)
		if !ok {
			return violation(path)
		}
		for key, val := range m {
			if _, ok := val.(string); !ok {
				return violation(path + "." + key)
			}
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
