package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"kura/internal/candidate"
	"kura/internal/decision"
	"kura/internal/pipeline"
	"kura/internal/resolution"
	"kura/internal/testsupport"
)

func gather(t *testing.T, d *pipeline.Driver) {
	t.Helper()
	if _, err := d.GatherCodes(context.Background(), false); err != nil {
		t.Fatalf("GatherCodes: %v", err)
	}
}

func TestOrganizeAutoFilesCorroboratedCode(t *testing.T) {
	fx := newFixture(t)
	src := testsupport.MakeGameDir(t, fx.inbox, scenarioA, "game.exe")
	fx.locator.results["Amazing Game"] = []candidate.Record{{Code: "RJ123456", DisplayName: "Amazing Game", SourceID: "fake"}}
	confirmer := &decision.Scripted{}
	d := fx.driver(pipeline.WithConfirmer(confirmer))
	gather(t, d)

	summary, err := d.Organize(context.Background())
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if summary.Filed != 1 {
		t.Fatalf("expected one filed directory, got %+v", summary)
	}
	dest := filepath.Join(fx.library, "RJ123456", scenarioA)
	if _, err := os.Stat(filepath.Join(dest, "game.exe")); err != nil {
		t.Fatalf("expected filed directory at %s: %v", dest, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source to be moved, stat err=%v", err)
	}
	state, _, err := resolution.Load(dest)
	if err != nil {
		t.Fatalf("load moved sidecar: %v", err)
	}
	if state.ResolvedCode != "RJ123456" {
		t.Fatalf("expected resolved code recorded, got %+v", state)
	}
	if calls := confirmer.Calls(); len(calls) != 0 {
		t.Fatalf("auto-accept should not prompt, got %d calls", len(calls))
	}
}

func twoWeakCandidates(fx *fixture) string {
	fx.locator.results["Mystery Title"] = []candidate.Record{
		{Code: "RJ000001", DisplayName: "Alpha", SourceID: "fake"},
		{Code: "RJ000002", DisplayName: "Beta", SourceID: "fake"},
	}
	return "Mystery Title"
}

func TestOrganizeRejectionPersistsNoMatch(t *testing.T) {
	fx := newFixture(t, testsupport.WithThresholds(1, 4))
	dir := testsupport.MakeGameDir(t, fx.inbox, twoWeakCandidates(fx))
	confirmer := &decision.Scripted{Answers: []int{-1}}
	d := fx.driver(pipeline.WithConfirmer(confirmer))
	gather(t, d)

	summary, err := d.Organize(context.Background())
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if summary.Rejected != 1 || summary.Filed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	calls := confirmer.Calls()
	if len(calls) != 1 || len(calls[0].Options) != 2 || calls[0].Single {
		t.Fatalf("expected one two-option prompt, got %+v", calls)
	}
	state, _, err := resolution.Load(dir)
	if err != nil {
		t.Fatalf("load sidecar: %v", err)
	}
	if !state.NoMatch {
		t.Fatal("expected noMatch after rejection")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("rejected directory should stay in place: %v", err)
	}

	summary, err = d.Organize(context.Background())
	if err != nil {
		t.Fatalf("second Organize: %v", err)
	}
	if summary.Skipped != 1 || len(confirmer.Calls()) != 1 {
		t.Fatalf("expected rerun to skip without prompting, got %+v and %d calls", summary, len(confirmer.Calls()))
	}
}

func TestOrganizeChoosesEscalatedOption(t *testing.T) {
	fx := newFixture(t, testsupport.WithThresholds(1, 4))
	name := twoWeakCandidates(fx)
	testsupport.MakeGameDir(t, fx.inbox, name)
	d := fx.driver(pipeline.WithConfirmer(&decision.Scripted{Answers: []int{1}}))
	gather(t, d)

	summary, err := d.Organize(context.Background())
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if summary.Filed != 1 {
		t.Fatalf("expected chosen option to be filed, got %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(fx.library, "RJ000002", name)); err != nil {
		t.Fatalf("expected directory under second option: %v", err)
	}
}

func TestOrganizeWithoutConfirmerDefers(t *testing.T) {
	fx := newFixture(t, testsupport.WithThresholds(1, 4))
	dir := testsupport.MakeGameDir(t, fx.inbox, twoWeakCandidates(fx))
	d := fx.driver()
	gather(t, d)

	summary, err := d.Organize(context.Background())
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if summary.Deferred != 1 {
		t.Fatalf("expected deferral, got %+v", summary)
	}
	state, _, err := resolution.Load(dir)
	if err != nil {
		t.Fatalf("load sidecar: %v", err)
	}
	if state.NoMatch || state.ResolvedCode != "" {
		t.Fatalf("deferral must not change state, got %+v", state)
	}
}

func TestOrganizeLeavesUnmatchedDirectoryAlone(t *testing.T) {
	fx := newFixture(t)
	dir := testsupport.MakeGameDir(t, fx.inbox, "Nothing Found")
	d := fx.driver()
	gather(t, d)

	summary, err := d.Organize(context.Background())
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if summary.Unmatched != 1 {
		t.Fatalf("expected unmatched, got %+v", summary)
	}
	state, _, err := resolution.Load(dir)
	if err != nil {
		t.Fatalf("load sidecar: %v", err)
	}
	if state.NoMatch {
		t.Fatal("no candidates must not be recorded as a rejection")
	}
}

func TestOrganizeResumesResolvedCode(t *testing.T) {
	fx := newFixture(t)
	dir := testsupport.MakeGameDir(t, fx.inbox, "Half Done")
	if err := resolution.Save(dir, resolution.State{ResolvedCode: "RJ555555"}); err != nil {
		t.Fatalf("seed sidecar: %v", err)
	}
	confirmer := &decision.Scripted{}

	summary, err := fx.driver(pipeline.WithConfirmer(confirmer)).Organize(context.Background())
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if summary.Filed != 1 || len(confirmer.Calls()) != 0 {
		t.Fatalf("expected resume without prompt, got %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(fx.library, "RJ555555", "Half Done")); err != nil {
		t.Fatalf("expected filed directory: %v", err)
	}
}

func TestOrganizeContinuesPastBrokenDirectories(t *testing.T) {
	fx := newFixture(t)
	broken := testsupport.MakeGameDir(t, fx.inbox, "Broken State")
	if err := os.WriteFile(resolution.Path(broken), []byte("{"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
	collide := testsupport.MakeGameDir(t, fx.inbox, "Collides")
	if err := resolution.Save(collide, resolution.State{ResolvedCode: "RJ222222"}); err != nil {
		t.Fatalf("seed sidecar: %v", err)
	}
	testsupport.MakeGameDir(t, filepath.Join(fx.library, "RJ222222"), "Collides")
	ok := testsupport.MakeGameDir(t, fx.inbox, "Fine")
	if err := resolution.Save(ok, resolution.State{ResolvedCode: "RJ333333"}); err != nil {
		t.Fatalf("seed sidecar: %v", err)
	}

	summary, err := fx.driver().Organize(context.Background())
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if summary.Failed != 2 || summary.Filed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, err := os.Stat(collide); err != nil {
		t.Fatalf("collided directory should stay in place: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fx.library, "RJ333333", "Fine")); err != nil {
		t.Fatalf("expected later directory to be filed: %v", err)
	}
}
