// Package wizard drives the three-step deal flow: property intake, document
// upload and analysis. All state is in memory and discarded on Reset.
package wizard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"deal-analyzer-client/internal/api"
	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/logger"
	"deal-analyzer-client/internal/common/metrics"
	"deal-analyzer-client/internal/common/observability"
	"deal-analyzer-client/internal/models"
)

const (
	msgIntakeDone   = "Property data fetched successfully"
	msgNoDeal       = "Deal ID is not set. Please create a deal first."
	msgAnalysisDone = "Deal analysis completed successfully"
	msgAnalysisFail = "Failed to analyze deal"
)

// Backend is the subset of the resource client the wizard calls.
type Backend interface {
	CreateDeal(ctx context.Context, in models.DealInput) api.Result[models.Deal]
	UploadDocument(ctx context.Context, dealID int64, kind models.DocumentKind, fileName string, r io.Reader) api.Result[models.Document]
	AnalyzeDeal(ctx context.Context, dealID int64) api.Result[models.AnalysisResult]
}

// View is a read-only snapshot for rendering.
type View struct {
	Step         int
	State        State
	Form         models.DealInput
	FieldErrors  map[string]string
	Deal         *models.Deal
	Slots        []Slot
	Result       *models.AnalysisResult
	Err          *errors.StandardError
	IsSubmitting bool
	IsAnalyzing  bool
	CanAdvance   bool
}

type Machine struct {
	mu          sync.Mutex
	state       State
	form        models.DealInput
	fieldErrors map[string]string
	deal        *models.Deal
	slots       map[models.DocumentKind]*Slot
	result      *models.AnalysisResult
	err         *errors.StandardError
	generation  uint64

	// origin is restored by Reset; nil for a fresh intake wizard.
	origin *models.Deal

	backend  Backend
	notifier Notifier
	log      logger.Logger
	obs      *observability.Observability
}

// New starts a wizard at property intake.
func New(backend Backend, notifier Notifier, log logger.Logger, obs *observability.Observability) *Machine {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	m := &Machine{
		backend:  backend,
		notifier: notifier,
		log:      log.WithFields(map[string]interface{}{"component": "wizard"}),
		obs:      obs,
	}
	m.resetLocked()
	return m
}

// NewForDeal starts at AnalysisReady for a deal that already exists. A zero
// deal id is accepted; StartAnalysis then fails without a network call.
func NewForDeal(deal models.Deal, backend Backend, notifier Notifier, log logger.Logger, obs *observability.Observability) *Machine {
	m := New(backend, notifier, log, obs)
	m.mu.Lock()
	defer m.mu.Unlock()
	d := deal
	m.origin = &d
	m.resetLocked()
	return m
}

// Reset returns to the initial configuration. Calls still in flight finish but
// their results are dropped.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.state
	m.generation++
	m.resetLocked()
	if from != m.state {
		m.recordTransition(from, m.state)
	}
	m.log.Debug("Wizard reset", map[string]interface{}{"from": from.String()})
}

func (m *Machine) resetLocked() {
	m.state = IntakePending
	m.form = models.DealInput{}
	m.fieldErrors = nil
	m.deal = nil
	m.result = nil
	m.err = nil
	m.slots = make(map[models.DocumentKind]*Slot, len(models.DocumentKinds))
	for _, k := range models.DocumentKinds {
		m.slots[k] = &Slot{Kind: k}
	}
	if m.origin != nil {
		d := *m.origin
		m.deal = &d
		m.state = AnalysisReady
	}
}

// ==========================
// Step 1: intake
// ==========================

// SubmitIntake validates form and creates the deal. The form is kept on every
// outcome so a failed submit can be corrected and retried.
func (m *Machine) SubmitIntake(ctx context.Context, form models.DealInput) (models.Deal, error) {
	m.mu.Lock()
	if m.state != IntakePending {
		err := errors.NewInvalidTransitionError("submitIntake", m.state.String())
		m.mu.Unlock()
		return models.Deal{}, err
	}
	m.form = form

	fields, verr := ValidateIntake(form)
	if verr != nil {
		err := errors.AsStandardError(verr)
		m.err = err
		m.mu.Unlock()
		return models.Deal{}, err
	}
	if len(fields) > 0 {
		m.fieldErrors = fields
		m.err = errors.NewValidationError(fields)
		err := m.err
		m.mu.Unlock()
		return models.Deal{}, err
	}
	m.fieldErrors = nil
	m.err = nil
	m.transitionLocked(IntakeSubmitting)
	gen := m.generation
	m.mu.Unlock()

	res := m.backend.CreateDeal(ctx, form)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return models.Deal{}, errDiscarded("submitIntake")
	}
	if !res.OK() {
		m.err = res.Err
		m.transitionLocked(IntakePending)
		m.mu.Unlock()
		m.log.Warn("Deal creation failed", map[string]interface{}{"code": string(res.Err.Code), "error": res.Err.Message})
		m.notify(LevelError, res.Err.Message)
		return models.Deal{}, res.Err
	}

	deal := res.Data
	m.deal = &deal
	for _, s := range m.slots {
		if s.Status != Unstaged && s.hasFile() {
			s.Status, s.Document, s.Err = Staged, nil, nil
		}
	}
	m.transitionLocked(IntakeComplete)
	m.mu.Unlock()

	m.log.Info("Deal created", map[string]interface{}{"dealId": deal.ID})
	m.notify(LevelSuccess, msgIntakeDone)
	return deal, nil
}

// ==========================
// Navigation
// ==========================

// Advance moves to the next step. A rejected advance changes nothing.
func (m *Machine) Advance() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case IntakeComplete:
		if m.dealIDLocked() == 0 {
			return errors.NewPreconditionError(msgNoDeal)
		}
		m.transitionLocked(DocsPending)
	case DocsPending:
		if missing := m.unsavedLocked(); len(missing) > 0 {
			return errors.NewPreconditionError(fmt.Sprintf("Save %s before continuing", joinLabels(missing)))
		}
		m.transitionLocked(DocsComplete)
	case DocsComplete:
		m.transitionLocked(AnalysisReady)
	default:
		return errors.NewInvalidTransitionError("advance", m.state.String())
	}
	return nil
}

// Back returns from the document step to the intake summary.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case DocsPending:
		m.transitionLocked(IntakeComplete)
	case DocsComplete:
		m.transitionLocked(DocsPending)
	default:
		return errors.NewInvalidTransitionError("back", m.state.String())
	}
	return nil
}

// ==========================
// Step 2: documents
// ==========================

// StageDocument holds a file locally. Nothing is sent until SaveDocument.
func (m *Machine) StageDocument(kind models.DocumentKind, fileName string, content []byte) error {
	if !kind.Valid() {
		return errors.NewValidationError(map[string]string{"doc_type": fmt.Sprintf("Unknown document type %q", kind)})
	}
	if fileName == "" {
		return errors.NewValidationError(map[string]string{"file": "File is required"})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !documentStepOpen(m.state) {
		return errors.NewInvalidTransitionError("stageDocument", m.state.String())
	}
	slot := m.slots[kind]
	if slot.Status == Saving {
		return errors.NewInvalidTransitionError("stageDocument", "saving")
	}
	*slot = Slot{Kind: kind, Status: Staged, FileName: fileName, content: append([]byte(nil), content...)}
	return nil
}

// SaveDocument uploads the staged file of kind. Only that slot changes.
func (m *Machine) SaveDocument(ctx context.Context, kind models.DocumentKind) error {
	m.mu.Lock()
	if !kind.Valid() {
		m.mu.Unlock()
		return errors.NewValidationError(map[string]string{"doc_type": fmt.Sprintf("Unknown document type %q", kind)})
	}
	if !documentStepOpen(m.state) {
		err := errors.NewInvalidTransitionError("saveDocument", m.state.String())
		m.mu.Unlock()
		return err
	}
	dealID := m.dealIDLocked()
	if dealID == 0 {
		m.mu.Unlock()
		m.notify(LevelError, msgNoDeal)
		return errors.NewPreconditionError(msgNoDeal)
	}
	slot := m.slots[kind]
	if slot.Status != Staged && slot.Status != Failed {
		err := errors.NewInvalidTransitionError("saveDocument", slot.Status.String())
		m.mu.Unlock()
		return err
	}
	slot.Status, slot.Err = Saving, nil
	name, content := slot.FileName, slot.content
	gen := m.generation
	m.mu.Unlock()

	res := m.backend.UploadDocument(ctx, dealID, kind, name, bytes.NewReader(content))

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return errDiscarded("saveDocument")
	}
	slot = m.slots[kind]
	if !res.OK() {
		slot.Status, slot.Err = Failed, res.Err
		m.mu.Unlock()
		m.log.Warn("Document upload failed", map[string]interface{}{"dealId": dealID, "kind": string(kind), "error": res.Err.Message})
		m.notify(LevelError, "Failed to upload "+kind.Label())
		return res.Err
	}
	doc := res.Data
	slot.Status, slot.Document = Saved, &doc
	m.mu.Unlock()

	m.log.Info("Document saved", map[string]interface{}{"dealId": dealID, "kind": string(kind), "documentId": doc.ID})
	m.notify(LevelSuccess, kind.Label()+" saved successfully")
	return nil
}

// ==========================
// Step 3: analysis
// ==========================

// StartAnalysis runs the backend analysis for the recorded deal. Without a deal
// id it fails before any network call. A failure returns to AnalysisReady; it
// is never retried automatically.
func (m *Machine) StartAnalysis(ctx context.Context) (models.AnalysisResult, error) {
	m.mu.Lock()
	dealID := m.dealIDLocked()
	if dealID == 0 {
		m.err = errors.NewPreconditionError(msgNoDeal)
		err := m.err
		m.mu.Unlock()
		m.notify(LevelError, msgNoDeal)
		return models.AnalysisResult{}, err
	}
	if m.state != DocsComplete && m.state != AnalysisReady {
		err := errors.NewInvalidTransitionError("startAnalysis", m.state.String())
		m.mu.Unlock()
		return models.AnalysisResult{}, err
	}
	m.err = nil
	m.transitionLocked(AnalysisRunning)
	gen := m.generation
	m.mu.Unlock()

	res := m.backend.AnalyzeDeal(ctx, dealID)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return models.AnalysisResult{}, errDiscarded("startAnalysis")
	}
	if !res.OK() {
		m.err = res.Err
		m.transitionLocked(AnalysisReady)
		m.mu.Unlock()
		m.log.Warn("Analysis failed", map[string]interface{}{"dealId": dealID, "code": string(res.Err.Code)})
		m.notify(LevelError, msgAnalysisFail)
		return models.AnalysisResult{}, res.Err
	}
	result := res.Data
	m.result = &result
	m.transitionLocked(AnalysisComplete)
	m.mu.Unlock()

	m.log.Info("Analysis completed", map[string]interface{}{"dealId": dealID, "verdict": result.Verdict()})
	m.notify(LevelSuccess, msgAnalysisDone)
	return result, nil
}

// ==========================
// Snapshot
// ==========================

func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		Step:         m.state.Step(),
		State:        m.state,
		Form:         m.form,
		Err:          m.err,
		IsSubmitting: m.state == IntakeSubmitting,
		IsAnalyzing:  m.state == AnalysisRunning,
		CanAdvance:   m.canAdvanceLocked(),
	}
	if len(m.fieldErrors) > 0 {
		v.FieldErrors = make(map[string]string, len(m.fieldErrors))
		for k, msg := range m.fieldErrors {
			v.FieldErrors[k] = msg
		}
	}
	if m.deal != nil {
		d := *m.deal
		v.Deal = &d
	}
	if m.result != nil {
		r := *m.result
		v.Result = &r
	}
	for _, k := range models.DocumentKinds {
		s := *m.slots[k]
		s.content = nil
		v.Slots = append(v.Slots, s)
	}
	return v
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) canAdvanceLocked() bool {
	switch m.state {
	case IntakeComplete:
		return m.dealIDLocked() != 0
	case DocsPending:
		return len(m.unsavedLocked()) == 0
	case DocsComplete:
		return true
	default:
		return false
	}
}

func (m *Machine) dealIDLocked() int64 {
	if m.deal == nil {
		return 0
	}
	return m.deal.ID
}

func (m *Machine) unsavedLocked() []models.DocumentKind {
	var missing []models.DocumentKind
	for _, k := range models.DocumentKinds {
		if !m.slots[k].Saved() {
			missing = append(missing, k)
		}
	}
	return missing
}

func (m *Machine) transitionLocked(to State) {
	from := m.state
	m.state = to
	m.recordTransition(from, to)
}

func (m *Machine) recordTransition(from, to State) {
	metrics.WizardTransitions.WithLabelValues(from.String(), to.String()).Inc()
	m.obs.RecordTransition(context.Background(), from.String(), to.String())
	m.log.Debug("Wizard transition", map[string]interface{}{"from": from.String(), "to": to.String()})
}

func (m *Machine) notify(level Level, msg string) {
	m.notifier.Notify(Notification{Level: level, Message: msg})
}

// documentStepOpen reports whether files may be staged or saved. Intake states
// are included so a save before the deal exists gets the missing-deal message.
func documentStepOpen(s State) bool {
	return s == IntakePending || s == IntakeComplete || s == DocsPending
}

func errDiscarded(action string) *errors.StandardError {
	return errors.NewPreconditionError(fmt.Sprintf("Wizard was reset while %s was in flight", action))
}

func joinLabels(kinds []models.DocumentKind) string {
	out := ""
	for i, k := range kinds {
		switch {
		case i == 0:
		case i == len(kinds)-1:
			out += " and "
		default:
			out += ", "
		}
		out += k.Label()
	}
	return out
}
