package workflow

import (
	"errors"
	"testing"

	"server/internal/domain"
)

func analysisFixture() *domain.AnalysisResult {
	return domain.FallbackAnalysis("temperate")
}

func designFixture() *domain.GeneratedDesign {
	return &domain.GeneratedDesign{ImageURL: "https://cdn.example/after.png"}
}

// countingPreview returns a preview whose release counter can be inspected.
func countingPreview(url string) (*Preview, *int) {
	count := 0
	p := NewPreview(url, func() error {
		count++
		return nil
	})
	return p, &count
}

// advanceToStyleSelection drives a fresh machine through upload and analysis.
func advanceToStyleSelection(t *testing.T, m *Machine) *Preview {
	t.Helper()
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	preview, _ := countingPreview("http://localhost/static/uploads/a.png")
	epoch, err := m.AttachUpload(preview, "https://res.example/a.jpg", false)
	if err != nil {
		t.Fatalf("attach upload: %v", err)
	}
	if !m.CompleteAnalysis(epoch, analysisFixture()) {
		t.Fatal("analysis completion discarded")
	}
	return preview
}

func TestHappyPathReachesResults(t *testing.T) {
	m := NewMachine()
	if got := m.Snapshot().Stage; got != StageHome {
		t.Fatalf("initial stage = %q", got)
	}

	advanceToStyleSelection(t, m)
	if got := m.Snapshot().Stage; got != StageStyleSelection {
		t.Fatalf("stage = %q, want style-selection", got)
	}

	epoch, err := m.ChooseStyle(domain.StyleChoice{PresetID: "zen-garden"})
	if err != nil {
		t.Fatalf("choose style: %v", err)
	}
	if got := m.Snapshot().Stage; got != StageGenerating {
		t.Fatalf("stage = %q, want generating", got)
	}

	if !m.CompleteGeneration(epoch, designFixture(), false) {
		t.Fatal("generation completion discarded")
	}
	snap := m.Snapshot()
	if snap.Stage != StageResults {
		t.Fatalf("stage = %q, want results", snap.Stage)
	}
	if snap.Design == nil || snap.Design.ImageURL != "https://cdn.example/after.png" {
		t.Fatalf("design = %+v", snap.Design)
	}
	if snap.Analysis == nil {
		t.Fatal("analysis lost on the way to results")
	}
}

func TestActionsOutsideTheirStageAreRejected(t *testing.T) {
	m := NewMachine()

	var terr *TransitionError
	if _, err := m.ChooseStyle(domain.StyleChoice{PresetID: "tropical"}); !errors.As(err, &terr) {
		t.Fatalf("choose style at home: %v", err)
	}
	if err := m.Back(); !errors.As(err, &terr) {
		t.Fatalf("back at home: %v", err)
	}
	if _, err := m.AttachUpload(NewPreview("u", nil), "r", false); !errors.As(err, &terr) {
		t.Fatalf("attach upload at home: %v", err)
	}

	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := m.Begin(); !errors.As(err, &terr) {
		t.Fatalf("double begin: %v", err)
	}
}

func TestAnalysisFailureAdvancesWithFallback(t *testing.T) {
	m := NewMachine()
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	preview, _ := countingPreview("p")
	epoch, err := m.AttachUpload(preview, "https://res.example/a.jpg", false)
	if err != nil {
		t.Fatalf("attach upload: %v", err)
	}

	// The caller supplies the fallback; the machine does not care whether the
	// backend succeeded.
	if !m.CompleteAnalysis(epoch, domain.FallbackAnalysis("arid")) {
		t.Fatal("fallback completion discarded")
	}
	snap := m.Snapshot()
	if snap.Stage != StageStyleSelection {
		t.Fatalf("stage = %q", snap.Stage)
	}
	if snap.Analysis.Climate != "arid" {
		t.Fatalf("climate = %q", snap.Analysis.Climate)
	}
}

func TestGenerationFailureReturnsToStyleSelection(t *testing.T) {
	m := NewMachine()
	advanceToStyleSelection(t, m)

	epoch, err := m.ChooseStyle(domain.StyleChoice{PresetID: "tropical"})
	if err != nil {
		t.Fatalf("choose style: %v", err)
	}
	if !m.CompleteGeneration(epoch, nil, true) {
		t.Fatal("failure completion discarded")
	}

	snap := m.Snapshot()
	if snap.Stage != StageStyleSelection {
		t.Fatalf("stage = %q", snap.Stage)
	}
	if snap.Analysis == nil || snap.RemoteURL == "" {
		t.Fatal("analysis or image lost on generation failure")
	}
	if snap.Design != nil {
		t.Fatal("failed generation must not leave a design behind")
	}

	// Retry must be possible immediately.
	if _, err := m.ChooseStyle(domain.StyleChoice{PresetID: "zen-garden"}); err != nil {
		t.Fatalf("retry choose style: %v", err)
	}
}

func TestStaleCompletionsAfterResetAreDiscarded(t *testing.T) {
	m := NewMachine()
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	preview, releases := countingPreview("p")
	epoch, err := m.AttachUpload(preview, "https://res.example/a.jpg", false)
	if err != nil {
		t.Fatalf("attach upload: %v", err)
	}

	m.Reset()
	if *releases != 1 {
		t.Fatalf("preview released %d times on reset", *releases)
	}

	if m.CompleteAnalysis(epoch, analysisFixture()) {
		t.Fatal("stale analysis applied after reset")
	}
	snap := m.Snapshot()
	if snap.Stage != StageHome || snap.Analysis != nil {
		t.Fatalf("reset state mutated by stale completion: %+v", snap)
	}
}

func TestStaleGenerationAfterResetIsDiscarded(t *testing.T) {
	m := NewMachine()
	advanceToStyleSelection(t, m)
	epoch, err := m.ChooseStyle(domain.StyleChoice{PresetID: "tropical"})
	if err != nil {
		t.Fatalf("choose style: %v", err)
	}

	m.Reset()
	if m.CompleteGeneration(epoch, designFixture(), false) {
		t.Fatal("stale generation applied after reset")
	}
	if snap := m.Snapshot(); snap.Stage != StageHome || snap.Design != nil {
		t.Fatalf("reset state mutated: %+v", snap)
	}
}

func TestBackDuringGenerationDiscardsLateResult(t *testing.T) {
	m := NewMachine()
	advanceToStyleSelection(t, m)
	epoch, err := m.ChooseStyle(domain.StyleChoice{PresetID: "tropical"})
	if err != nil {
		t.Fatalf("choose style: %v", err)
	}

	if err := m.Back(); err != nil {
		t.Fatalf("back: %v", err)
	}
	if got := m.Snapshot().Stage; got != StageStyleSelection {
		t.Fatalf("stage = %q", got)
	}

	// The user went back before the call settled; a second choice is blocked
	// until it does.
	var terr *TransitionError
	if _, err := m.ChooseStyle(domain.StyleChoice{PresetID: "zen-garden"}); !errors.As(err, &terr) {
		t.Fatalf("choose while generation in flight: %v", err)
	}

	// The late result settles the guard but must not move the stage.
	if m.CompleteGeneration(epoch, designFixture(), false) {
		t.Fatal("late generation applied after back")
	}
	if snap := m.Snapshot(); snap.Stage != StageStyleSelection || snap.Design != nil {
		t.Fatalf("late result leaked: %+v", snap)
	}

	// Once settled, choosing again works.
	if _, err := m.ChooseStyle(domain.StyleChoice{PresetID: "zen-garden"}); err != nil {
		t.Fatalf("choose after settle: %v", err)
	}
}

func TestBackFromResultsClearsDesignOnly(t *testing.T) {
	m := NewMachine()
	advanceToStyleSelection(t, m)
	epoch, _ := m.ChooseStyle(domain.StyleChoice{PresetID: "tropical"})
	m.CompleteGeneration(epoch, designFixture(), false)

	if err := m.Back(); err != nil {
		t.Fatalf("back: %v", err)
	}
	snap := m.Snapshot()
	if snap.Stage != StageStyleSelection {
		t.Fatalf("stage = %q", snap.Stage)
	}
	if snap.Design != nil {
		t.Fatal("design must be cleared on back")
	}
	if snap.Analysis == nil || snap.RemoteURL == "" {
		t.Fatal("analysis and image must survive back")
	}
}

func TestChooseStyleValidatesChoice(t *testing.T) {
	m := NewMachine()
	advanceToStyleSelection(t, m)

	if _, err := m.ChooseStyle(domain.StyleChoice{}); !errors.Is(err, domain.ErrNoStyle) {
		t.Fatalf("empty choice: %v", err)
	}
	if _, err := m.ChooseStyle(domain.StyleChoice{PresetID: "tropical", CustomDescription: "also this"}); !errors.Is(err, domain.ErrAmbiguousStyle) {
		t.Fatalf("ambiguous choice: %v", err)
	}
	var uerr *domain.UnknownStyleError
	if _, err := m.ChooseStyle(domain.StyleChoice{PresetID: "brutalist"}); !errors.As(err, &uerr) {
		t.Fatalf("unknown preset: %v", err)
	}
	// A rejected choice must leave the stage untouched.
	if got := m.Snapshot().Stage; got != StageStyleSelection {
		t.Fatalf("stage = %q after rejected choices", got)
	}
}

func TestPreviewReleasedExactlyOnceAcrossCycles(t *testing.T) {
	m := NewMachine()
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	p1, c1 := countingPreview("one")
	if _, err := m.AttachUpload(p1, "r1", false); err != nil {
		t.Fatalf("attach upload: %v", err)
	}

	m.Reset()
	m.Reset() // second reset must not double-release
	if *c1 != 1 {
		t.Fatalf("first preview released %d times", *c1)
	}

	if err := m.Begin(); err != nil {
		t.Fatalf("begin again: %v", err)
	}
	p2, c2 := countingPreview("two")
	if _, err := m.AttachUpload(p2, "r2", false); err != nil {
		t.Fatalf("attach second upload: %v", err)
	}
	m.Reset()
	if *c1 != 1 || *c2 != 1 {
		t.Fatalf("releases = %d and %d, want 1 and 1", *c1, *c2)
	}
}

func TestResetClearsEverything(t *testing.T) {
	m := NewMachine()
	advanceToStyleSelection(t, m)
	epoch, _ := m.ChooseStyle(domain.StyleChoice{PresetID: "tropical"})
	m.CompleteGeneration(epoch, designFixture(), false)

	m.Reset()
	snap := m.Snapshot()
	if snap.Stage != StageHome {
		t.Fatalf("stage = %q", snap.Stage)
	}
	if snap.Analysis != nil || snap.Design != nil || snap.RemoteURL != "" || snap.PreviewURL != "" {
		t.Fatalf("state survived reset: %+v", snap)
	}
	if snap.Choice.PresetID != "" || snap.Choice.CustomDescription != "" {
		t.Fatalf("choice survived reset: %+v", snap.Choice)
	}
}

func TestAttachUploadReplacesPreview(t *testing.T) {
	m := NewMachine()
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	p1, c1 := countingPreview("one")
	epoch, err := m.AttachUpload(p1, "r1", false)
	if err != nil {
		t.Fatalf("attach upload: %v", err)
	}
	// Analysis settles, user resets to home and starts over.
	m.CompleteAnalysis(epoch, analysisFixture())
	m.Reset()
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}

	p2, _ := countingPreview("two")
	if _, err := m.AttachUpload(p2, "r2", true); err != nil {
		t.Fatalf("attach second upload: %v", err)
	}
	if *c1 != 1 {
		t.Fatalf("first preview released %d times", *c1)
	}
	snap := m.Snapshot()
	if snap.PreviewURL != "two" || !snap.LocalOnly {
		t.Fatalf("snapshot = %+v", snap)
	}
}
