package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
)

// Verifies the capability profile chosen for every task/input combination.
func TestSelect_Profiles(t *testing.T) {
	testCases := []struct {
		name        string
		kind        schemas.TaskKind
		hasDocument bool
		hasTarget   bool
		wantMode    schemas.CapabilityMode
		wantEnforce bool
	}{
		{"audit full scan", schemas.TaskAudit, false, false, schemas.ModeGroundedSearch, false},
		{"audit with target only", schemas.TaskAudit, false, true, schemas.ModeGroundedSearch, false},
		{"audit with datasheet", schemas.TaskAudit, true, true, schemas.ModeDocumentReasoning, true},
		{"audit with datasheet no target", schemas.TaskAudit, true, false, schemas.ModeDocumentReasoning, true},
		{"bom", schemas.TaskBOM, false, false, schemas.ModeGroundedSearch, false},
		{"part search", schemas.TaskPartSearch, false, false, schemas.ModeGroundedSearch, false},
		{"firmware", schemas.TaskFirmware, false, false, schemas.ModeDocumentReasoning, true},
		{"firmware ignores datasheet flag", schemas.TaskFirmware, true, false, schemas.ModeDocumentReasoning, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := Select(tc.kind, tc.hasDocument, tc.hasTarget)
			assert.Equal(t, tc.wantMode, d.Mode)
			assert.Equal(t, tc.wantEnforce, d.EnforceSchema)
		})
	}
}

// The two capabilities are mutually exclusive: schema enforcement must never
// accompany grounded search.
func TestSelect_NeverEnforcesWithGrounding(t *testing.T) {
	kinds := []schemas.TaskKind{schemas.TaskAudit, schemas.TaskBOM, schemas.TaskPartSearch, schemas.TaskFirmware}
	for _, kind := range kinds {
		for _, hasDoc := range []bool{false, true} {
			for _, hasTarget := range []bool{false, true} {
				d := Select(kind, hasDoc, hasTarget)
				if d.Mode == schemas.ModeGroundedSearch {
					assert.False(t, d.EnforceSchema,
						"grounded search must not enforce a schema (kind=%s doc=%v target=%v)", kind, hasDoc, hasTarget)
				}
			}
		}
	}
}

// Identical inputs must always yield the same decision.
func TestSelect_Deterministic(t *testing.T) {
	first := Select(schemas.TaskAudit, false, true)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Select(schemas.TaskAudit, false, true))
	}
}
