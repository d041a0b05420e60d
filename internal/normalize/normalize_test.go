package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
)

const validAuditJSON = `{
	"summary": "The design is sound.",
	"missingDatasheet": false,
	"sections": [
		{"title": "U1 Verification", "status": "pass", "content": "Power pins connected."}
	],
	"suggestedFixes": ["Add a bulk capacitor near the regulator."]
}`

func auditContract() schemas.Contract {
	return schemas.ContractFor(schemas.TaskAudit)
}

func decodeAudit(t *testing.T, raw string, enforced bool) (*schemas.AuditResult, error) {
	t.Helper()
	var out schemas.AuditResult
	err := Decode(raw, enforced, auditContract(), &out)
	return &out, err
}

// -- Extraction chain --

// Schema-enforced replies are bare JSON and must parse directly.
func TestDecode_EnforcedDirectParse(t *testing.T) {
	res, err := decodeAudit(t, validAuditJSON, true)
	require.NoError(t, err)
	assert.Equal(t, "The design is sound.", res.Summary)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, schemas.StatusPass, res.Sections[0].Status)
}

// Grounded replies commonly wrap the JSON in prose and a markdown fence.
func TestDecode_FencedBlock(t *testing.T) {
	raw := "Here is the audit you asked for:\n```json\n" + validAuditJSON + "\n```\nLet me know if you need more."
	res, err := decodeAudit(t, raw, false)
	require.NoError(t, err)
	assert.Equal(t, "The design is sound.", res.Summary)
}

// Without a fence the first-'{'-to-last-'}' span must be tried.
func TestDecode_BraceSpanFallback(t *testing.T) {
	raw := "Sure! " + validAuditJSON + " Hope that helps."
	res, err := decodeAudit(t, raw, false)
	require.NoError(t, err)
	assert.Equal(t, "The design is sound.", res.Summary)
	assert.Len(t, res.SuggestedFixes, 1)
}

// A fence containing garbage must not stop the chain when a later extractor
// cannot help either; the reply is malformed.
func TestDecode_MalformedResponse(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"plain prose", "I could not analyze the schematic, sorry."},
		{"unbalanced braces", "result: } backwards {"},
		{"empty reply", ""},
		{"broken json in fence", "```json\n{\"summary\": \n```"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeAudit(t, tc.raw, false)
			require.Error(t, err)

			var nerr *Error
			require.ErrorAs(t, err, &nerr)
			assert.Equal(t, MalformedResponse, nerr.Kind)
		})
	}
}

// An unenforced reply that happens to be bare JSON still decodes via the
// brace-span fallback.
func TestDecode_UnenforcedBareJSON(t *testing.T) {
	res, err := decodeAudit(t, validAuditJSON, false)
	require.NoError(t, err)
	assert.Equal(t, "The design is sound.", res.Summary)
}

// -- Contract validation --

func TestDecode_MissingRequiredField(t *testing.T) {
	raw := `{"missingDatasheet": false, "sections": [], "suggestedFixes": []}`
	_, err := decodeAudit(t, raw, true)

	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, SchemaViolation, nerr.Kind)
	assert.Equal(t, "summary", nerr.Field)
}

func TestDecode_WrongFieldType(t *testing.T) {
	raw := `{"summary": 42, "sections": [], "suggestedFixes": []}`
	_, err := decodeAudit(t, raw, true)

	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, SchemaViolation, nerr.Kind)
	assert.Equal(t, "summary", nerr.Field)
}

// Enum membership is validated, and the violation path names the element.
func TestDecode_EnumViolationInNestedArray(t *testing.T) {
	raw := `{
		"summary": "ok",
		"sections": [{"title": "U1", "status": "catastrophic", "content": "..."}],
		"suggestedFixes": []
	}`
	_, err := decodeAudit(t, raw, true)

	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, SchemaViolation, nerr.Kind)
	assert.Equal(t, "sections[0].status", nerr.Field)
}

// Optional fields may be absent or null, but when present they must carry the
// declared type.
func TestDecode_OptionalFields(t *testing.T) {
	t.Run("absent is fine", func(t *testing.T) {
		raw := `{"summary": "ok", "sections": [], "suggestedFixes": []}`
		res, err := decodeAudit(t, raw, true)
		require.NoError(t, err)
		assert.False(t, res.MissingDatasheet)
	})

	t.Run("null is treated as absent", func(t *testing.T) {
		raw := `{"summary": "ok", "missingDatasheet": null, "sections": [], "suggestedFixes": []}`
		_, err := decodeAudit(t, raw, true)
		require.NoError(t, err)
	})

	t.Run("wrong type is a violation", func(t *testing.T) {
		raw := `{"summary": "ok", "missingDatasheet": "yes", "sections": [], "suggestedFixes": []}`
		_, err := decodeAudit(t, raw, true)

		var nerr *Error
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, SchemaViolation, nerr.Kind)
		assert.Equal(t, "missingDatasheet", nerr.Field)
	})
}

func TestDecode_StringMapValidation(t *testing.T) {
	contract := schemas.ContractFor(schemas.TaskPartSearch)

	t.Run("string values pass", func(t *testing.T) {
		var out schemas.PartSearchResult
		err := Decode(`{"partNumber": "LM358", "manufacturer": "TI", "description": "Dual op-amp", "specs": {"Vmax": "32V"}, "cadLinks": {}, "pricing": [], "alternatives": []}`, true, contract, &out)
		require.NoError(t, err)
		assert.Equal(t, "32V", out.Specs["Vmax"])
	})

	t.Run("non-string value is a violation", func(t *testing.T) {
		var out schemas.PartSearchResult
		err := Decode(`{"partNumber": "LM358", "manufacturer": "TI", "description": "Dual op-amp", "specs": {"pins": 8}, "cadLinks": {}, "pricing": [], "alternatives": []}`, true, contract, &out)

		var nerr *Error
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, SchemaViolation, nerr.Kind)
		assert.Equal(t, "specs.pins", nerr.Field)
	})
}

// Numbers arrive as float64 from the decoder but must land in typed fields.
func TestDecode_BOMNumericFields(t *testing.T) {
	raw := "```json\n" + `{
		"items": [{
			"partNumber": "GRM188R71C104KA01",
			"description": "100nF 0603 X7R",
			"manufacturer": "Murata",
			"quantity": 12,
			"designators": "C1-C12",
			"estimatedUnitPrice": 0.0125,
			"totalPrice": 0.15,
			"cadLinks": {"model3d": "https://www.snapeda.com/parts/GRM188R71C104KA01"}
		}],
		"totalEstimatedCost": 0.15,
		"currency": "USD"
	}` + "\n```"

	var out schemas.BOMResult
	err := Decode(raw, false, schemas.ContractFor(schemas.TaskBOM), &out)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, 12, out.Items[0].Quantity)
	assert.InDelta(t, 0.0125, out.Items[0].EstimatedUnitPrice, 1e-9)
}

// The classified error is the package's whole failure surface.
func TestError_Classification(t *testing.T) {
	malformed := &Error{Kind: MalformedResponse}
	assert.Equal(t, "malformed_response", malformed.Kind.String())
	assert.NotEmpty(t, malformed.Error())

	violation := &Error{Kind: SchemaViolation, Field: "items[0].quantity"}
	assert.Contains(t, violation.Error(), "items[0].quantity")

	wrapped := &Error{Kind: MalformedResponse, cause: errors.New("eof")}
	assert.EqualError(t, errors.Unwrap(wrapped), "eof")
}
