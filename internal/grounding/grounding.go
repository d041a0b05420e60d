// File: internal/grounding/grounding.go

// Package grounding attaches web provenance to normalized results.
package grounding

import (
	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
)

// Sources maps the grounding chunks of a grounded-search invocation into
// provenance records. Chunks without a web reference are dropped. Returns nil
// when nothing maps; callers rely on nil meaning "no sources", so this never
// hands back an empty non-nil slice. Malformed or absent metadata simply
// yields no sources; this cannot fail.
func Sources(chunks []schemas.GroundingChunk) []schemas.WebSource {
	var out []schemas.WebSource
	for _, chunk := range chunks {
		if chunk.Web == nil {
			continue
		}
		out = append(out, schemas.WebSource{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return out
}
