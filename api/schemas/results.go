// File: api/schemas/results.go
package schemas

// WebSource is a provenance record for a web page the backend consulted during
// a grounded search call.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// SectionStatus is the verdict of one audit section.
type SectionStatus string

const (
	StatusPass    SectionStatus = "pass"
	StatusFail    SectionStatus = "fail"
	StatusWarning SectionStatus = "warning"
	StatusInfo    SectionStatus = "info"
)

// AuditSection is one per-component finding of a schematic audit.
type AuditSection struct {
	Title   string        `json:"title"`
	Status  SectionStatus `json:"status"`
	Content string        `json:"content"`
	// BoundingBox is [ymin, xmin, ymax, xmax] on a 0-1000 scale, independent
	// of the source image resolution.
	BoundingBox       []float64 `json:"boundingBox,omitempty"`
	DatasheetImageURI string    `json:"datasheetImageUri,omitempty"`
	DatasheetPageRef  int       `json:"datasheetPageRef,omitempty"`
	CorrectData       string    `json:"correctData,omitempty"`
}

// AuditResult is the normalized outcome of a schematic audit.
//
// MissingDatasheet is the backend's self-reported signal that it could not
// confidently reconcile an online-found part with the schematic symbol, or
// found no reliable source at all. The orchestrator turns it into the
// ambiguous-match outcome.
type AuditResult struct {
	Summary          string         `json:"summary"`
	MissingDatasheet bool           `json:"missingDatasheet,omitempty"`
	Sections         []AuditSection `json:"sections"`
	SuggestedFixes   []string       `json:"suggestedFixes"`
	// Sources is populated only for grounded search invocations. A nil slice
	// means grounding was not attempted, which is distinct from "attempted and
	// found nothing".
	Sources []WebSource `json:"sources,omitempty"`
}

// CADLinks groups the CAD artifact URLs the backend located for a part.
// BOM items use Model3D/Footprint/Symbol; part search uses
// Model3D/Footprint/Provider.
type CADLinks struct {
	Model3D   string `json:"model3d,omitempty"`
	Footprint string `json:"footprint,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// BOMItem is one line of a generated bill of materials.
type BOMItem struct {
	PartNumber         string   `json:"partNumber"`
	Description        string   `json:"description"`
	Manufacturer       string   `json:"manufacturer"`
	Quantity           int      `json:"quantity"`
	Designators        string   `json:"designators"`        // e.g. "R1, R2, R5"
	EstimatedUnitPrice float64  `json:"estimatedUnitPrice"` // USD
	TotalPrice         float64  `json:"totalPrice"`         // USD
	CADLinks           CADLinks `json:"cadLinks"`
}

// BOMResult is the normalized outcome of BOM extraction.
type BOMResult struct {
	Items              []BOMItem   `json:"items"`
	TotalEstimatedCost float64     `json:"totalEstimatedCost"`
	Currency           string      `json:"currency"`
	Sources            []WebSource `json:"sources,omitempty"`
}

// PricingOffer is one distributor quote inside a part search result.
type PricingOffer struct {
	Distributor string `json:"distributor"`
	Price       string `json:"price"`
	Stock       string `json:"stock"`
	Link        string `json:"link"`
}

// PartSearchResult is the normalized outcome of a part lookup.
type PartSearchResult struct {
	PartNumber   string            `json:"partNumber"`
	Manufacturer string            `json:"manufacturer"`
	Description  string            `json:"description"`
	ImageURI     string            `json:"imageUri,omitempty"`
	Specs        map[string]string `json:"specs"`
	DatasheetURI string            `json:"datasheetUri,omitempty"`
	CADLinks     CADLinks          `json:"cadLinks"`
	Pricing      []PricingOffer    `json:"pricing"`
	Alternatives []string          `json:"alternatives"`
	Sources      []WebSource       `json:"sources,omitempty"`
}

// CodeResult is the normalized outcome of firmware generation. Code is written
// verbatim to a file named by Filename on export.
type CodeResult struct {
	Filename     string `json:"filename"`
	Language     string `json:"language"`
	Architecture string `json:"architecture"` // e.g. "STM32 HAL", "Arduino"
	Description  string `json:"description"`
	Code         string `json:"code"`
}
