// File: api/schemas/requests.go
package schemas

import "context"

// TaskKind identifies one of the four supported analysis tasks.
type TaskKind string

const (
	TaskAudit      TaskKind = "audit"
	TaskBOM        TaskKind = "bom"
	TaskPartSearch TaskKind = "part_search"
	TaskFirmware   TaskKind = "firmware"
)

// CapabilityMode selects which backend capability profile an invocation runs
// under. The two modes are mutually exclusive on the backend: grounded search
// performs live web lookups but cannot guarantee a structured output shape,
// document reasoning can enforce a schema but has no web access.
type CapabilityMode string

const (
	ModeDocumentReasoning CapabilityMode = "document_reasoning"
	ModeGroundedSearch    CapabilityMode = "grounded_search"
)

// Attachment is a binary payload (schematic diagram or datasheet) handed to
// the backend alongside the prompt text. Owned by a single run and discarded
// when the run completes.
type Attachment struct {
	MediaType string
	Data      []byte
}

// TaskParams carries the free text inputs of a run. Only the fields relevant
// to the task kind are consulted.
type TaskParams struct {
	TargetPart    string // audit: specific part to verify; empty means full scan
	Notes         string // audit, firmware: additional user notes
	Query         string // part search: the part number to look up
	WantDatasheet bool   // part search
	WantCAD       bool   // part search
	WantPricing   bool   // part search
	PinMapping    string // firmware: manual pin mapping, authoritative over visual inference
}

// TaskRequest is one run's worth of input: the task kind, its free text
// parameters and zero to two attachments. Constructed fresh per run and never
// mutated afterwards.
type TaskRequest struct {
	Kind      TaskKind
	Params    TaskParams
	Schematic *Attachment // primary diagram
	Datasheet *Attachment // optional supporting document
}

// PromptPart is one element of the ordered multimodal payload sent to the
// backend. Exactly one of Text or Attachment is set.
type PromptPart struct {
	Text       string
	Attachment *Attachment
}

// InvokeRequest describes a single backend invocation: the ordered prompt
// parts, the capability mode, and (for document reasoning only) the structural
// schema the backend must conform to.
type InvokeRequest struct {
	Parts         []PromptPart
	Mode          CapabilityMode
	EnforceSchema bool
	SchemaSpec    map[string]any
}

// GroundingWeb is the web reference inside a grounding chunk.
type GroundingWeb struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingChunk is one provenance record returned by a grounded search call.
// Chunks may reference things other than web pages, in which case Web is nil.
type GroundingChunk struct {
	Web *GroundingWeb `json:"web,omitempty"`
}

// ModelReply is the unprocessed outcome of one backend invocation. It is
// consumed immediately by the normalizer and then discarded.
type ModelReply struct {
	Text            string
	GroundingChunks []GroundingChunk
}

// ModelClient abstracts the hosted multimodal backend. Implementations live in
// internal/modelclient; tests substitute fakes.
type ModelClient interface {
	// Invoke sends one multimodal request and returns the raw reply.
	Invoke(ctx context.Context, req InvokeRequest) (*ModelReply, error)
	// Close releases any resources held by the client.
	Close() error
}
