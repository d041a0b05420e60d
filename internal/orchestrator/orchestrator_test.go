package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
)

// -- Test Setup Helpers --

// fakeClient scripts the backend: it records the invocation it received and
// replies with a canned body. release, when set, blocks Invoke until closed.
type fakeClient struct {
	mu       sync.Mutex
	requests []schemas.InvokeRequest
	reply    *schemas.ModelReply
	err      error
	release  chan struct{}
}

func (f *fakeClient) Invoke(ctx context.Context, req schemas.InvokeRequest) (*schemas.ModelReply, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) lastRequest(t *testing.T) schemas.InvokeRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestOrchestrator(t *testing.T, client *fakeClient) *Orchestrator {
	t.Helper()
	return New(client, zaptest.NewLogger(t))
}

func schematic() schemas.Attachment {
	return schemas.Attachment{MediaType: "image/png", Data: []byte{0x89, 0x50}}
}

func tiChunk() []schemas.GroundingChunk {
	return []schemas.GroundingChunk{
		{Web: &schemas.GroundingWeb{URI: "https://www.ti.com/lit/ds/symlink/ne555.pdf", Title: "NE555"}},
	}
}

const healthyAuditJSON = `{
	"summary": "No issues found.",
	"missingDatasheet": false,
	"sections": [{"title": "U1 Verification", "status": "pass", "content": "ok"}],
	"suggestedFixes": []
}`

// -- Audit flows --

// With a datasheet attached, the run must use document reasoning with schema
// enforcement and must not report web sources.
func TestRunAudit_WithDatasheet(t *testing.T) {
	client := &fakeClient{reply: &schemas.ModelReply{Text: healthyAuditJSON}}
	orch := newTestOrchestrator(t, client)

	ds := schemas.Attachment{MediaType: "application/pdf", Data: []byte("%PDF")}
	outcome, err := orch.RunAudit(context.Background(), schematic(), "NE555P", &ds, "")
	require.NoError(t, err)

	req := client.lastRequest(t)
	assert.Equal(t, schemas.ModeDocumentReasoning, req.Mode)
	assert.True(t, req.EnforceSchema)
	assert.NotEmpty(t, req.SchemaSpec)
	require.Len(t, req.Parts, 3)

	assert.Equal(t, AuditSuccess, outcome.State)
	assert.Equal(t, "No issues found.", outcome.Result.Summary)
	assert.Nil(t, outcome.Result.Sources, "document reasoning runs carry no web sources")
}

// Without a datasheet the run goes grounded: no schema spec on the wire, and
// grounding chunks become sources on the result.
func TestRunAudit_GroundedAttachesSources(t *testing.T) {
	client := &fakeClient{reply: &schemas.ModelReply{
		Text:            "Here you go:\n```json\n" + healthyAuditJSON + "\n```",
		GroundingChunks: tiChunk(),
	}}
	orch := newTestOrchestrator(t, client)

	outcome, err := orch.RunAudit(context.Background(), schematic(), "NE555P", nil, "")
	require.NoError(t, err)

	req := client.lastRequest(t)
	assert.Equal(t, schemas.ModeGroundedSearch, req.Mode)
	assert.False(t, req.EnforceSchema)
	assert.Empty(t, req.SchemaSpec)

	assert.Equal(t, AuditSuccess, outcome.State)
	require.Len(t, outcome.Result.Sources, 1)
	assert.Equal(t, "NE555", outcome.Result.Sources[0].Title)
}

// A self-reported datasheet mismatch ends the run as an ambiguous match: the
// backend's sections and fixes are discarded, the summary is replaced with
// the fixed retry guidance, and provenance survives.
func TestRunAudit_AmbiguousMatch(t *testing.T) {
	reply := `{
		"summary": "I think I found a 14-pin variant but the symbol has 8 pins.",
		"missingDatasheet": true,
		"sections": [{"title": "Guesswork", "status": "warning", "content": "unreliable"}],
		"suggestedFixes": ["do not trust this"]
	}`
	client := &fakeClient{reply: &schemas.ModelReply{Text: reply, GroundingChunks: tiChunk()}}
	orch := newTestOrchestrator(t, client)

	outcome, err := orch.RunAudit(context.Background(), schematic(), "NE555P", nil, "")
	require.NoError(t, err)

	assert.Equal(t, AuditAmbiguousMatch, outcome.State)
	assert.True(t, outcome.Result.MissingDatasheet)
	assert.Contains(t, outcome.Result.Summary, `"NE555P"`)
	assert.Contains(t, outcome.Result.Summary, "could not be confidently matched")
	assert.Empty(t, outcome.Result.Sections)
	assert.Empty(t, outcome.Result.SuggestedFixes)
	require.Len(t, outcome.Result.Sources, 1, "provenance must survive the ambiguous outcome")
}

// Without a target part, the fixed summary names the schematic subject.
func TestRunAudit_AmbiguousMatchWithoutTarget(t *testing.T) {
	reply := `{"summary": "s", "missingDatasheet": true, "sections": [], "suggestedFixes": []}`
	client := &fakeClient{reply: &schemas.ModelReply{Text: reply}}
	orch := newTestOrchestrator(t, client)

	outcome, err := orch.RunAudit(context.Background(), schematic(), "", nil, "")
	require.NoError(t, err)
	assert.Equal(t, AuditAmbiguousMatch, outcome.State)
	assert.Contains(t, outcome.Result.Summary, "identified in schematic")
}

// -- Failure collapse --

// Internal failure detail must never surface to the caller, only the generic
// run failure.
func TestRunAudit_FailuresCollapse(t *testing.T) {
	testCases := []struct {
		name   string
		client *fakeClient
	}{
		{"backend error", &fakeClient{err: errors.New("status 500, key leaked in body")}},
		{"malformed reply", &fakeClient{reply: &schemas.ModelReply{Text: "I refuse to emit JSON"}}},
		{"schema violation", &fakeClient{reply: &schemas.ModelReply{Text: `{"summary": 42, "sections": [], "suggestedFixes": []}`}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			orch := newTestOrchestrator(t, tc.client)
			ds := schemas.Attachment{MediaType: "application/pdf", Data: []byte("%PDF")}
			_, err := orch.RunAudit(context.Background(), schematic(), "X", &ds, "")

			require.ErrorIs(t, err, ErrRunFailed)
			assert.NotContains(t, err.Error(), "key leaked")
			assert.NotContains(t, err.Error(), "42")
		})
	}
}

// -- Other task flows --

func TestRunBOM_AlwaysGroundedWithSources(t *testing.T) {
	bom := "```json\n" + `{
		"items": [{
			"partNumber": "NE555P", "description": "Timer IC", "manufacturer": "TI",
			"quantity": 1, "designators": "U1",
			"estimatedUnitPrice": 0.45, "totalPrice": 0.45,
			"cadLinks": {"model3d": "https://www.snapeda.com/parts/NE555P"}
		}],
		"totalEstimatedCost": 0.45,
		"currency": "USD"
	}` + "\n```"
	client := &fakeClient{reply: &schemas.ModelReply{Text: bom, GroundingChunks: tiChunk()}}
	orch := newTestOrchestrator(t, client)

	res, err := orch.RunBOM(context.Background(), schematic())
	require.NoError(t, err)

	req := client.lastRequest(t)
	assert.Equal(t, schemas.ModeGroundedSearch, req.Mode)
	assert.False(t, req.EnforceSchema)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "USD", res.Currency)
	require.Len(t, res.Sources, 1)
}

func TestRunPartSearch(t *testing.T) {
	search := "```json\n" + `{
		"partNumber": "LM358", "manufacturer": "TI", "description": "Dual op-amp",
		"specs": {"Package": "SOIC-8"},
		"cadLinks": {"provider": "SnapEDA"},
		"pricing": [{"distributor": "DigiKey", "price": "$0.35", "stock": "12000", "link": "https://www.digikey.com/lm358"}],
		"alternatives": ["LM2904", "TL072"]
	}` + "\n```"
	client := &fakeClient{reply: &schemas.ModelReply{Text: search, GroundingChunks: tiChunk()}}
	orch := newTestOrchestrator(t, client)

	res, err := orch.RunPartSearch(context.Background(), "LM358", true, true, true)
	require.NoError(t, err)

	assert.Equal(t, schemas.ModeGroundedSearch, client.lastRequest(t).Mode)
	assert.Equal(t, "LM358", res.PartNumber)
	assert.Len(t, res.Alternatives, 2)
	require.Len(t, res.Sources, 1)
}

func TestRunFirmwareGen_EnforcedReasoning(t *testing.T) {
	code := `{
		"filename": "main.c", "language": "c", "architecture": "STM32 HAL",
		"description": "GPIO init for LED on PA5.",
		"code": "#include \"stm32f1xx_hal.h\"\nint main(void) { return 0; }"
	}`
	client := &fakeClient{reply: &schemas.ModelReply{Text: code}}
	orch := newTestOrchestrator(t, client)

	res, err := orch.RunFirmwareGen(context.Background(), schematic(), "", "PA5 -> LED1")
	require.NoError(t, err)

	req := client.lastRequest(t)
	assert.Equal(t, schemas.ModeDocumentReasoning, req.Mode)
	assert.True(t, req.EnforceSchema)

	assert.Equal(t, "main.c", res.Filename)
	assert.Contains(t, res.Code, "stm32f1xx_hal.h")
}

// -- In-flight guard --

// A second run requested while one is in flight gets ErrBusy immediately.
func TestRun_BusyGuard(t *testing.T) {
	client := &fakeClient{
		reply:   &schemas.ModelReply{Text: healthyAuditJSON},
		release: make(chan struct{}),
	}
	orch := newTestOrchestrator(t, client)
	ds := schemas.Attachment{MediaType: "application/pdf", Data: []byte("%PDF")}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := orch.RunAudit(context.Background(), schematic(), "X", &ds, "")
		done <- err
	}()

	<-started
	// Wait for the first run to reach the backend before probing the guard.
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.requests) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := orch.RunBOM(context.Background(), schematic())
	assert.ErrorIs(t, err, ErrBusy)

	close(client.release)
	require.NoError(t, <-done)

	// Guard releases once the run completes.
	_, err = orch.RunAudit(context.Background(), schematic(), "X", &ds, "")
	require.NoError(t, err)
}
