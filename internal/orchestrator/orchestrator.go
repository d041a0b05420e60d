// File: internal/orchestrator/orchestrator.go

// Package orchestrator wires strategy selection, prompt construction, the
// backend call, normalization and provenance enrichment into the four task
// flows. A run is atomically Success, AmbiguousMatch (audit only) or Failed;
// no partial results are delivered, no retries are performed, and internal
// error detail stays in the logs behind one generic user-facing message.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
	"github.com/xkilldash9x/circuitscope-cli/internal/grounding"
	"github.com/xkilldash9x/circuitscope-cli/internal/normalize"
	"github.com/xkilldash9x/circuitscope-cli/internal/prompt"
	"github.com/xkilldash9x/circuitscope-cli/internal/strategy"
)

var (
	// ErrBusy is returned when a run is requested while another is in flight.
	ErrBusy = errors.New("another analysis is already running")
	// ErrRunFailed is the single generic user-facing failure. The underlying
	// cause (backend error, malformed reply, schema violation) is logged.
	ErrRunFailed = errors.New("the request could not be processed; please try again")
)

// ambiguousSummary is the fixed explanatory text that replaces the backend's
// summary when a grounded audit cannot reconcile the looked-up part with the
// schematic symbol.
const ambiguousSummary = `Automatic lookup failed. The part "%s" could not be confidently matched to the schematic symbol using online sources (DigiKey, Mouser, etc.). This might be due to a pin count mismatch or variant ambiguity.`

// AuditState is the terminal state of an audit run that produced a result.
type AuditState string

const (
	AuditSuccess        AuditState = "success"
	AuditAmbiguousMatch AuditState = "ambiguous_match"
)

// AuditOutcome carries the audit result together with its terminal state.
// AmbiguousMatch is not a failure: it asks the user to supply the datasheet
// and re-run, which routes the retry through document reasoning.
type AuditOutcome struct {
	State  AuditState          `json:"state"`
	Result schemas.AuditResult `json:"result"`
}

// Orchestrator runs one task at a time against a model backend. The in-flight
// guard is cooperative: concurrent callers get ErrBusy instead of queueing.
type Orchestrator struct {
	client   schemas.ModelClient
	logger   *zap.Logger
	inFlight *semaphore.Weighted
}

// New creates an orchestrator bound to a backend client.
func New(client schemas.ModelClient, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		client:   client,
		logger:   logger.Named("orchestrator"),
		inFlight: semaphore.NewWeighted(1),
	}
}

// RunAudit audits a schematic, optionally against a specific part and its
// datasheet. See AuditOutcome for the ambiguous-match contract.
func (o *Orchestrator) RunAudit(ctx context.Context, schematic schemas.Attachment, targetPart string, datasheet *schemas.Attachment, notes string) (*AuditOutcome, error) {
	if !o.inFlight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer o.inFlight.Release(1)

	log := o.runLogger(schemas.TaskAudit)
	req := schemas.TaskRequest{
		Kind:      schemas.TaskAudit,
		Params:    schemas.TaskParams{TargetPart: targetPart, Notes: notes},
		Schematic: &schematic,
		Datasheet: datasheet,
	}

	var result schemas.AuditResult
	reply, decision, err := o.invoke(ctx, log, req, &result)
	if err != nil {
		return nil, o.fail(log, err)
	}

	if decision.Mode == schemas.ModeGroundedSearch {
		result.Sources = grounding.Sources(reply.GroundingChunks)
	}

	if result.MissingDatasheet {
		// The backend could not reconcile the looked-up part with the
		// schematic symbol. Whatever it put in sections and fixes is not
		// trustworthy; keep only the provenance.
		subject := targetPart
		if subject == "" {
			subject = "identified in schematic"
		}
		log.Info("Audit ended in ambiguous match", zap.String("target_part", targetPart))
		return &AuditOutcome{
			State: AuditAmbiguousMatch,
			Result: schemas.AuditResult{
				Summary:          fmt.Sprintf(ambiguousSummary, subject),
				MissingDatasheet: true,
				Sections:         []schemas.AuditSection{},
				SuggestedFixes:   []string{},
				Sources:          result.Sources,
			},
		}, nil
	}

	log.Info("Audit complete",
		zap.Int("sections", len(result.Sections)),
		zap.Int("suggested_fixes", len(result.SuggestedFixes)),
		zap.Int("sources", len(result.Sources)),
	)
	return &AuditOutcome{State: AuditSuccess, Result: result}, nil
}

// RunBOM extracts a bill of materials with estimated pricing and CAD links.
func (o *Orchestrator) RunBOM(ctx context.Context, schematic schemas.Attachment) (*schemas.BOMResult, error) {
	if !o.inFlight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer o.inFlight.Release(1)

	log := o.runLogger(schemas.TaskBOM)
	req := schemas.TaskRequest{Kind: schemas.TaskBOM, Schematic: &schematic}

	var result schemas.BOMResult
	reply, _, err := o.invoke(ctx, log, req, &result)
	if err != nil {
		return nil, o.fail(log, err)
	}
	result.Sources = grounding.Sources(reply.GroundingChunks)

	log.Info("BOM extraction complete",
		zap.Int("items", len(result.Items)),
		zap.Float64("total_cost", result.TotalEstimatedCost),
		zap.String("currency", result.Currency),
	)
	return &result, nil
}

// RunPartSearch looks up a single component, honoring the caller's interest
// flags for datasheet, CAD artifacts and pricing.
func (o *Orchestrator) RunPartSearch(ctx context.Context, query string, wantDatasheet, wantCAD, wantPricing bool) (*schemas.PartSearchResult, error) {
	if !o.inFlight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer o.inFlight.Release(1)

	log := o.runLogger(schemas.TaskPartSearch)
	req := schemas.TaskRequest{
		Kind: schemas.TaskPartSearch,
		Params: schemas.TaskParams{
			Query:         query,
			WantDatasheet: wantDatasheet,
			WantCAD:       wantCAD,
			WantPricing:   wantPricing,
		},
	}

	var result schemas.PartSearchResult
	reply, _, err := o.invoke(ctx, log, req, &result)
	if err != nil {
		return nil, o.fail(log, err)
	}
	result.Sources = grounding.Sources(reply.GroundingChunks)

	log.Info("Part search complete",
		zap.String("part_number", result.PartNumber),
		zap.Int("pricing_offers", len(result.Pricing)),
		zap.Int("alternatives", len(result.Alternatives)),
	)
	return &result, nil
}

// RunFirmwareGen generates firmware skeleton code from a schematic. Manual
// pin mappings are threaded into the prompt as authoritative overrides of
// anything the backend infers visually.
func (o *Orchestrator) RunFirmwareGen(ctx context.Context, schematic schemas.Attachment, notes, manualPinMapping string) (*schemas.CodeResult, error) {
	if !o.inFlight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer o.inFlight.Release(1)

	log := o.runLogger(schemas.TaskFirmware)
	req := schemas.TaskRequest{
		Kind:      schemas.TaskFirmware,
		Params:    schemas.TaskParams{Notes: notes, PinMapping: manualPinMapping},
		Schematic: &schematic,
	}

	var result schemas.CodeResult
	if _, _, err := o.invoke(ctx, log, req, &result); err != nil {
		return nil, o.fail(log, err)
	}

	log.Info("Firmware generation complete",
		zap.String("filename", result.Filename),
		zap.String("language", result.Language),
		zap.String("architecture", result.Architecture),
	)
	return &result, nil
}

// invoke runs the shared pipeline: strategy, prompt, backend call,
// normalization. The typed result lands in out; the raw reply is returned so
// callers can enrich with grounding provenance.
func (o *Orchestrator) invoke(ctx context.Context, log *zap.Logger, req schemas.TaskRequest, out any) (*schemas.ModelReply, strategy.Decision, error) {
	decision := strategy.Select(req.Kind, req.Datasheet != nil, req.Params.TargetPart != "")

	bundle, err := prompt.Build(req)
	if err != nil {
		return nil, decision, fmt.Errorf("building prompt: %w", err)
	}

	contract := schemas.ContractFor(req.Kind)
	inv := schemas.InvokeRequest{
		Parts:         bundle.Parts,
		Mode:          decision.Mode,
		EnforceSchema: decision.EnforceSchema,
	}
	if decision.EnforceSchema {
		inv.SchemaSpec = contract.SchemaSpec()
	}

	log.Debug("Invoking backend",
		zap.String("mode", string(decision.Mode)),
		zap.Bool("schema_enforced", decision.EnforceSchema),
		zap.Int("parts", len(inv.Parts)),
	)

	reply, err := o.client.Invoke(ctx, inv)
	if err != nil {
		return nil, decision, fmt.Errorf("backend invocation: %w", err)
	}

	if err := normalize.Decode(reply.Text, decision.EnforceSchema, contract, out); err != nil {
		return nil, decision, fmt.Errorf("normalizing reply: %w", err)
	}
	return reply, decision, nil
}

func (o *Orchestrator) runLogger(kind schemas.TaskKind) *zap.Logger {
	return o.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("task", string(kind)),
	)
}

// fail logs the internal error and collapses it into the generic failure.
func (o *Orchestrator) fail(log *zap.Logger, err error) error {
	var nerr *normalize.Error
	if errors.As(err, &nerr) {
		log.Error("Run failed during normalization",
			zap.String("kind", nerr.Kind.String()),
			zap.String("field", nerr.Field),
			zap.Error(err),
		)
		return ErrRunFailed
	}
	log.Error("Run failed", zap.Error(err))
	return ErrRunFailed
}
