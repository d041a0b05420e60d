// File: api/schemas/contracts.go
package schemas

// FieldKind enumerates the JSON value kinds a contract can declare.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindBoolean
	KindObject
	KindArray
	// KindStringMap is a free-form object whose values must all be strings
	// (the part search "specs" table).
	KindStringMap
)

// FieldSpec declares one field of a response contract: its JSON name, value
// kind, required-ness, and any nested structure. The same table drives both
// the structural schema sent to the backend in enforced mode and the runtime
// validation of parsed replies, so the two can never drift apart.
type FieldSpec struct {
	Name        string
	Kind        FieldKind
	Required    bool
	Enum        []string    // valid values when Kind is KindString
	Elem        *FieldSpec  // element spec when Kind is KindArray
	Fields      []FieldSpec // members when Kind is KindObject
	Description string      // hint forwarded to the backend in the schema spec
}

// Contract is the machine-readable output contract of one task kind. One
// static contract exists per task; contracts are read-only and process-wide.
type Contract struct {
	Task   TaskKind
	Fields []FieldSpec
}

var auditSectionFields = []FieldSpec{
	{Name: "title", Kind: KindString, Required: true},
	{Name: "status", Kind: KindString, Required: true, Enum: []string{"pass", "fail", "warning", "info"}},
	{Name: "content", Kind: KindString, Required: true},
	{
		Name: "boundingBox", Kind: KindArray, Elem: &FieldSpec{Kind: KindNumber},
		Description: "A single bounding box [ymin, xmin, ymax, xmax] normalized to 0-1000 representing the schematic region of interest.",
	},
	{Name: "datasheetImageUri", Kind: KindString},
	{Name: "datasheetPageRef", Kind: KindNumber},
	{Name: "correctData", Kind: KindString},
}

var auditContract = Contract{
	Task: TaskAudit,
	Fields: []FieldSpec{
		{Name: "summary", Kind: KindString, Required: true},
		{
			Name: "missingDatasheet", Kind: KindBoolean,
			Description: "Set to true if you CANNOT find the datasheet, OR if the found part does not match the schematic symbol (pin count/labels mismatch). Otherwise false.",
		},
		{Name: "sections", Kind: KindArray, Required: true, Elem: &FieldSpec{Kind: KindObject, Fields: auditSectionFields}},
		{Name: "suggestedFixes", Kind: KindArray, Required: true, Elem: &FieldSpec{Kind: KindString}},
	},
}

var bomContract = Contract{
	Task: TaskBOM,
	Fields: []FieldSpec{
		{Name: "items", Kind: KindArray, Required: true, Elem: &FieldSpec{Kind: KindObject, Fields: []FieldSpec{
			{Name: "partNumber", Kind: KindString, Required: true},
			{Name: "description", Kind: KindString, Required: true},
			{Name: "manufacturer", Kind: KindString, Required: true},
			{Name: "quantity", Kind: KindNumber, Required: true},
			{Name: "designators", Kind: KindString, Required: true},
			{Name: "estimatedUnitPrice", Kind: KindNumber, Required: true},
			{Name: "totalPrice", Kind: KindNumber, Required: true},
			{Name: "cadLinks", Kind: KindObject, Required: true, Fields: []FieldSpec{
				{Name: "model3d", Kind: KindString},
				{Name: "footprint", Kind: KindString},
				{Name: "symbol", Kind: KindString},
			}},
		}}},
		{Name: "totalEstimatedCost", Kind: KindNumber, Required: true},
		{Name: "currency", Kind: KindString, Required: true},
	},
}

var partSearchContract = Contract{
	Task: TaskPartSearch,
	Fields: []FieldSpec{
		{Name: "partNumber", Kind: KindString, Required: true},
		{Name: "manufacturer", Kind: KindString, Required: true},
		{Name: "description", Kind: KindString, Required: true},
		{Name: "imageUri", Kind: KindString},
		{Name: "specs", Kind: KindStringMap, Required: true, Description: "Key-value pairs of technical specs."},
		{Name: "datasheetUri", Kind: KindString},
		{Name: "cadLinks", Kind: KindObject, Required: true, Fields: []FieldSpec{
			{Name: "model3d", Kind: KindString},
			{Name: "footprint", Kind: KindString},
			{Name: "provider", Kind: KindString},
		}},
		{Name: "pricing", Kind: KindArray, Required: true, Elem: &FieldSpec{Kind: KindObject, Fields: []FieldSpec{
			{Name: "distributor", Kind: KindString, Required: true},
			{Name: "price", Kind: KindString, Required: true},
			{Name: "stock", Kind: KindString, Required: true},
			{Name: "link", Kind: KindString, Required: true},
		}}},
		{Name: "alternatives", Kind: KindArray, Required: true, Elem: &FieldSpec{Kind: KindString}},
	},
}

var firmwareContract = Contract{
	Task: TaskFirmware,
	Fields: []FieldSpec{
		{Name: "filename", Kind: KindString, Required: true},
		{Name: "language", Kind: KindString, Required: true},
		{Name: "architecture", Kind: KindString, Required: true},
		{Name: "description", Kind: KindString, Required: true},
		{Name: "code", Kind: KindString, Required: true},
	},
}

// ContractFor returns the static response contract for a task kind.
func ContractFor(kind TaskKind) Contract {
	switch kind {
	case TaskAudit:
		return auditContract
	case TaskBOM:
		return bomContract
	case TaskPartSearch:
		return partSearchContract
	case TaskFirmware:
		return firmwareContract
	default:
		return Contract{Task: kind}
	}
}

// SchemaSpec renders the contract as the structural response schema the
// Gemini generateContent API expects (generationConfig.response_schema). Only
// used for document-reasoning invocations; grounded search calls embed the
// shape as prose instead.
func (c Contract) SchemaSpec() map[string]any {
	return objectSpec(c.Fields)
}

func objectSpec(fields []FieldSpec) map[string]any {
	props := make(map[string]any, len(fields))
	var required []string
	for _, f := range fields {
		props[f.Name] = fieldSpec(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	spec := map[string]any{
		"type":       "OBJECT",
		"properties": props,
	}
	if len(required) > 0 {
		spec["required"] = required
	}
	return spec
}

func fieldSpec(f FieldSpec) map[string]any {
	var spec map[string]any
	switch f.Kind {
	case KindString:
		spec = map[string]any{"type": "STRING"}
		if len(f.Enum) > 0 {
			spec["enum"] = f.Enum
		}
	case KindNumber:
		spec = map[string]any{"type": "NUMBER"}
	case KindBoolean:
		spec = map[string]any{"type": "BOOLEAN"}
	case KindObject:
		spec = objectSpec(f.Fields)
	case KindArray:
		spec = map[string]any{"type": "ARRAY"}
		if f.Elem != nil {
			spec["items"] = fieldSpec(*f.Elem)
		}
	case KindStringMap:
		// The API schema language has no map type; declare a bare object and
		// let the description carry the key/value expectation.
		spec = map[string]any{"type": "OBJECT"}
	default:
		spec = map[string]any{}
	}
	if f.Description != "" {
		spec["description"] = f.Description
	}
	return spec
}
