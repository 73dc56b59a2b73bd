package workflow

import (
	"fmt"
	"sync"
	"time"

	"server/internal/domain"
)

// Stage is one discrete phase of the upload, analyze, style, generate,
// result pipeline.
type Stage string

const (
	StageHome           Stage = "home"
	StageUploading      Stage = "uploading"
	StageAnalyzing      Stage = "analyzing"
	StageStyleSelection Stage = "style-selection"
	StageGenerating     Stage = "generating"
	StageResults        Stage = "results"
)

// TransitionError reports a user action that is not defined for the current
// stage. Actions are never silently swallowed.
type TransitionError struct {
	Stage  Stage
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("workflow: action %q not allowed in stage %q", e.Action, e.Stage)
}

// Machine owns the full workflow state bundle: current stage, image
// references, analysis, style choice and generated design. It is the only
// writer; presentation reads snapshots. Async completions carry the epoch
// they were started under and are discarded when stale, so a result arriving
// after a reset can never mutate the new workflow instance.
type Machine struct {
	mu  sync.Mutex
	now func() time.Time

	stage          Stage
	stageEnteredAt time.Time
	epoch          uint64

	preview   *Preview
	remoteURL string
	localOnly bool

	analysis *domain.AnalysisResult
	choice   domain.StyleChoice
	design   *domain.GeneratedDesign

	analysisInFlight   bool
	analysisSettled    bool
	generationInFlight bool
	generationSettled  bool
}

// Snapshot is a read-only copy of the machine state for rendering.
type Snapshot struct {
	Stage          Stage
	StageEnteredAt time.Time
	Epoch          uint64

	PreviewURL string
	RemoteURL  string
	LocalOnly  bool

	Analysis *domain.AnalysisResult
	Choice   domain.StyleChoice
	Design   *domain.GeneratedDesign

	AnalysisSettled   bool
	GenerationSettled bool
}

// NewMachine returns a machine at the home stage.
func NewMachine() *Machine {
	m := &Machine{now: time.Now}
	m.stage = StageHome
	m.stageEnteredAt = m.now()
	return m
}

// Snapshot returns a consistent copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Stage:             m.stage,
		StageEnteredAt:    m.stageEnteredAt,
		Epoch:             m.epoch,
		RemoteURL:         m.remoteURL,
		LocalOnly:         m.localOnly,
		Analysis:          m.analysis,
		Choice:            m.choice,
		Design:            m.design,
		AnalysisSettled:   m.analysisSettled,
		GenerationSettled: m.generationSettled,
	}
	if m.preview != nil {
		snap.PreviewURL = m.preview.URL()
	}
	return snap
}

// Begin moves the workflow from home to uploading.
func (m *Machine) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageHome {
		return &TransitionError{Stage: m.stage, Action: "begin"}
	}
	m.enter(StageUploading)
	return nil
}

// AttachUpload records the uploaded image references and advances to
// analyzing. Analysis starts optimistically with whichever URL is available,
// so remoteURL may equal the preview URL when the durable upload failed.
// A previous preview, if any, is released before being replaced. The
// returned epoch must be passed to CompleteAnalysis.
func (m *Machine) AttachUpload(preview *Preview, remoteURL string, localOnly bool) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageUploading {
		return 0, &TransitionError{Stage: m.stage, Action: "attach-upload"}
	}
	if m.analysisInFlight {
		return 0, &TransitionError{Stage: m.stage, Action: "attach-upload-while-analyzing"}
	}
	if m.preview != nil {
		_ = m.preview.Release()
	}
	m.preview = preview
	m.remoteURL = remoteURL
	m.localOnly = localOnly
	m.analysisInFlight = true
	m.analysisSettled = false
	m.enter(StageAnalyzing)
	return m.epoch, nil
}

// CompleteAnalysis applies the settled analysis outcome. A failed analysis
// advances anyway with the caller-provided fallback result, so the user is
// never blocked behind the vision backend. Returns false when the result was
// stale and discarded.
func (m *Machine) CompleteAnalysis(epoch uint64, result *domain.AnalysisResult) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return false
	}
	if !m.analysisInFlight {
		return false
	}
	m.analysisInFlight = false
	m.analysisSettled = true
	if m.stage != StageAnalyzing {
		return false
	}
	m.analysis = result
	m.enter(StageStyleSelection)
	return true
}

// ChooseStyle records the user's choice and advances to generating. The
// returned epoch must be passed to CompleteGeneration.
func (m *Machine) ChooseStyle(choice domain.StyleChoice) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageStyleSelection {
		return 0, &TransitionError{Stage: m.stage, Action: "choose-style"}
	}
	if m.generationInFlight {
		return 0, &TransitionError{Stage: m.stage, Action: "choose-style-while-generating"}
	}
	if err := choice.Validate(); err != nil {
		return 0, err
	}
	m.choice = choice
	m.generationInFlight = true
	m.generationSettled = false
	m.enter(StageGenerating)
	return m.epoch, nil
}

// CompleteGeneration applies the settled generation outcome: results on
// success, back to style selection on failure with the original image and
// analysis intact. Returns false when the result was stale and discarded.
func (m *Machine) CompleteGeneration(epoch uint64, design *domain.GeneratedDesign, failed bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return false
	}
	if !m.generationInFlight {
		return false
	}
	m.generationInFlight = false
	m.generationSettled = true
	if m.stage != StageGenerating {
		return false
	}
	if failed || design == nil {
		m.enter(StageStyleSelection)
		return true
	}
	m.design = design
	m.enter(StageResults)
	return true
}

// Back returns from generating to style selection on explicit user action.
// An in-flight generation keeps running; its late result is discarded by the
// stage check in CompleteGeneration, and the in-flight guard stays up until
// it settles.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.stage {
	case StageGenerating, StageResults:
		m.design = nil
		m.enter(StageStyleSelection)
		return nil
	default:
		return &TransitionError{Stage: m.stage, Action: "back"}
	}
}

// Reset returns the workflow to home from any stage, atomically clearing all
// downstream state and releasing the preview resource exactly once. The
// epoch bump invalidates every outstanding async completion.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	if m.preview != nil {
		_ = m.preview.Release()
		m.preview = nil
	}
	m.remoteURL = ""
	m.localOnly = false
	m.analysis = nil
	m.choice = domain.StyleChoice{}
	m.design = nil
	m.analysisInFlight = false
	m.analysisSettled = false
	m.generationInFlight = false
	m.generationSettled = false
	m.enter(StageHome)
}

func (m *Machine) enter(stage Stage) {
	m.stage = stage
	m.stageEnteredAt = m.now()
}
