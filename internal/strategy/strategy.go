// File: internal/strategy/strategy.go

// Package strategy decides, per task and per available inputs, which backend
// capability profile an invocation should use. The decision is a pure
// function with no side effects: identical inputs always yield the same mode.
package strategy

import (
	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
)

// Decision is the capability profile chosen for one backend invocation.
// EnforceSchema is true only for document-reasoning calls; the backend cannot
// simultaneously browse the web and guarantee a JSON shape, so grounded
// search calls embed the expected shape as prompt instructions instead.
type Decision struct {
	Mode          schemas.CapabilityMode
	EnforceSchema bool
}

// Select picks the capability profile for a task. For audits, the presence of
// a supporting document routes the call through document reasoning; the
// target identifier picks the prompt template but never the capability mode.
// BOM and part search need live pricing and CAD lookups, so they always run
// grounded. Firmware generation is pure visual reasoning and always enforces
// the schema.
func Select(kind schemas.TaskKind, hasDocument, hasTarget bool) Decision {
	_ = hasTarget

	switch kind {
	case schemas.TaskAudit:
		if hasDocument {
			return Decision{Mode: schemas.ModeDocumentReasoning, EnforceSchema: true}
		}
		return Decision{Mode: schemas.ModeGroundedSearch, EnforceSchema: false}
	case schemas.TaskBOM, schemas.TaskPartSearch:
		return Decision{Mode: schemas.ModeGroundedSearch, EnforceSchema: false}
	case schemas.TaskFirmware:
		return Decision{Mode: schemas.ModeDocumentReasoning, EnforceSchema: true}
	default:
		// Unknown kinds fall back to the conservative profile.
		return Decision{Mode: schemas.ModeDocumentReasoning, EnforceSchema: true}
	}
}
