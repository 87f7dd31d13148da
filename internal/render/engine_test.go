package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"resume-typeset/internal/artifacts"
	"resume-typeset/internal/shared/storage/object/local"
	"resume-typeset/internal/templates"
	"resume-typeset/internal/typeset"
	"resume-typeset/resume/model"
)

// countingCompiler is a stub compiler for orchestrator tests. It can fail
// with a configured error and can block until released to exercise the
// single-flight guard.
type countingCompiler struct {
	mu      sync.Mutex
	calls   int
	err     error
	started chan struct{}
	release chan struct{}
}

func (c *countingCompiler) Compile(ctx context.Context, source string) (typeset.CompileResult, error) {
	c.mu.Lock()
	c.calls++
	err := c.err
	started := c.started
	release := c.release
	c.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return typeset.CompileResult{}, fmt.Errorf("%w: %v", typeset.ErrCompileTimeout, ctx.Err())
		}
	}
	if err != nil {
		return typeset.CompileResult{}, err
	}
	return typeset.CompileResult{PDF: []byte("%PDF-1.7 stub " + source[:8])}, nil
}

func (c *countingCompiler) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingCompiler) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func testContent() model.ResumeContent {
	return model.ResumeContent{
		Header: model.Header{
			Name:     "Ada Lovelace",
			Title:    "Software Engineer",
			Email:    "ada@example.com",
			Phone:    "+44 20 5550 0100",
			Location: "London",
		},
		Summary: []string{"Backend engineer focused on document pipelines."},
		Skills: model.Skills{
			Languages: []string{"Go", "Python"},
			Databases: []string{"PostgreSQL"},
		},
		Experience: []model.Experience{
			{
				Company:    "Analytical Engines",
				Role:       "Lead Engineer",
				Start:      "2019-03",
				End:        "Present",
				Highlights: []string{"Built the compute pipeline."},
			},
			{
				Company: "Babbage & Co",
				Role:    "Engineer",
				Start:   "2015-01",
				End:     "2019-02",
			},
		},
		Education: []model.Education{
			{
				Institution: "University of London",
				Degree:      "BSc",
				Field:       "Mathematics",
				Start:       "2010-09",
				End:         "2013-06",
			},
		},
	}
}

func newTestEngine(t *testing.T, compiler typeset.Compiler) *Engine {
	t.Helper()
	registry, err := templates.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	store := artifacts.NewStore(local.New(t.TempDir()), artifacts.NewMemoryLibraryRepo(), artifacts.NewMemoryCurrentRepo())
	return NewEngine(registry, compiler, store)
}

func TestRenderCompilesThenServesFromCache(t *testing.T) {
	compiler := &countingCompiler{}
	engine := newTestEngine(t, compiler)
	ctx := context.Background()
	content := testContent()

	first, err := engine.Render(ctx, "user-1", content, "modern_ats_v1", nil)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	if first.CacheHit {
		t.Fatalf("first render reported a cache hit")
	}
	if compiler.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", compiler.callCount())
	}

	second, err := engine.Render(ctx, "user-1", content, "modern_ats_v1", nil)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !second.CacheHit {
		t.Fatalf("identical content did not hit the cache")
	}
	if compiler.callCount() != 1 {
		t.Fatalf("cache hit recompiled: calls = %d", compiler.callCount())
	}
	if second.Artifact.Fingerprint != first.Artifact.Fingerprint {
		t.Fatalf("fingerprint changed on cache hit")
	}
	if status := engine.Status("user-1"); status.State != StateReady {
		t.Fatalf("state = %s, want %s", status.State, StateReady)
	}
}

func TestRenderRecompilesOnContentChange(t *testing.T) {
	compiler := &countingCompiler{}
	engine := newTestEngine(t, compiler)
	ctx := context.Background()

	if _, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	changed := testContent()
	changed.Summary = []string{"A different professional summary."}
	result, err := engine.Render(ctx, "user-1", changed, "modern_ats_v1", nil)
	if err != nil {
		t.Fatalf("render changed: %v", err)
	}
	if result.CacheHit {
		t.Fatalf("changed content served from cache")
	}
	if compiler.callCount() != 2 {
		t.Fatalf("calls = %d, want 2", compiler.callCount())
	}
}

func TestSkillReorderHitsCacheExperienceReorderDoesNot(t *testing.T) {
	compiler := &countingCompiler{}
	engine := newTestEngine(t, compiler)
	ctx := context.Background()

	if _, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil); err != nil {
		t.Fatalf("render: %v", err)
	}

	reorderedSkills := testContent()
	reorderedSkills.Skills.Languages = []string{"Python", "Go"}
	result, err := engine.Render(ctx, "user-1", reorderedSkills, "modern_ats_v1", nil)
	if err != nil {
		t.Fatalf("render reordered skills: %v", err)
	}
	if !result.CacheHit {
		t.Fatalf("skill reordering invalidated the cache")
	}

	reorderedExperience := testContent()
	reorderedExperience.Experience[0], reorderedExperience.Experience[1] =
		reorderedExperience.Experience[1], reorderedExperience.Experience[0]
	result, err = engine.Render(ctx, "user-1", reorderedExperience, "modern_ats_v1", nil)
	if err != nil {
		t.Fatalf("render reordered experience: %v", err)
	}
	if result.CacheHit {
		t.Fatalf("experience reordering served from cache")
	}
}

func TestTemplateChangeRecompiles(t *testing.T) {
	compiler := &countingCompiler{}
	engine := newTestEngine(t, compiler)
	ctx := context.Background()

	if _, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	result, err := engine.Render(ctx, "user-1", testContent(), "classic_serif_v1", nil)
	if err != nil {
		t.Fatalf("render with other template: %v", err)
	}
	if result.CacheHit {
		t.Fatalf("template switch served from cache")
	}
	if result.Artifact.TemplateID != "classic_serif_v1" {
		t.Fatalf("template = %q", result.Artifact.TemplateID)
	}
}

func TestCompileFailureSetsFailedStateAndRetryRecovers(t *testing.T) {
	compiler := &countingCompiler{}
	compiler.setErr(fmt.Errorf("%w: undefined control sequence", typeset.ErrCompilerSyntax))
	engine := newTestEngine(t, compiler)
	ctx := context.Background()

	_, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil)
	if !errors.Is(err, typeset.ErrCompilerSyntax) {
		t.Fatalf("err = %v, want ErrCompilerSyntax", err)
	}
	status := engine.Status("user-1")
	if status.State != StateFailed {
		t.Fatalf("state = %s, want %s", status.State, StateFailed)
	}
	if status.Code != "compiler_syntax" {
		t.Fatalf("code = %q", status.Code)
	}

	// Retry re-enters the pipeline from the failed state.
	compiler.setErr(nil)
	result, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.CacheHit {
		t.Fatalf("retry after failure reported cache hit")
	}
	if status := engine.Status("user-1"); status.State != StateReady || status.Code != "" {
		t.Fatalf("status after retry = %+v", status)
	}
}

func TestMissingRequiredBlockFailsBeforeCompile(t *testing.T) {
	compiler := &countingCompiler{}
	engine := newTestEngine(t, compiler)
	content := testContent()
	content.Summary = nil
	content.Skills = model.Skills{}

	_, err := engine.Render(context.Background(), "user-1", content, "modern_ats_v1", nil)
	if !errors.Is(err, typeset.ErrTemplate) {
		t.Fatalf("err = %v, want ErrTemplate", err)
	}
	if compiler.callCount() != 0 {
		t.Fatalf("compiler invoked despite template error")
	}
	if status := engine.Status("user-1"); status.Code != "template_error" {
		t.Fatalf("status = %+v", status)
	}
}

func TestSecondRenderWhileInFlightIsRejected(t *testing.T) {
	compiler := &countingCompiler{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	engine := newTestEngine(t, compiler)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil)
		done <- err
	}()

	<-compiler.started
	if _, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil); !errors.Is(err, ErrRenderInFlight) {
		t.Fatalf("concurrent render err = %v, want ErrRenderInFlight", err)
	}

	close(compiler.release)
	if err := <-done; err != nil {
		t.Fatalf("first render: %v", err)
	}

	// Other sessions are unaffected by one user's in-flight render.
	if _, err := engine.Render(ctx, "user-2", testContent(), "modern_ats_v1", nil); err != nil {
		t.Fatalf("other user render: %v", err)
	}
}

func TestTeardownInvalidatesCache(t *testing.T) {
	compiler := &countingCompiler{}
	engine := newTestEngine(t, compiler)
	ctx := context.Background()

	if _, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	engine.Teardown()

	if status := engine.Status("user-1"); status.State != StateIdle {
		t.Fatalf("state after teardown = %s", status.State)
	}
	result, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil)
	if err != nil {
		t.Fatalf("render after teardown: %v", err)
	}
	if result.CacheHit {
		t.Fatalf("cache survived teardown")
	}
	if compiler.callCount() != 2 {
		t.Fatalf("calls = %d, want 2", compiler.callCount())
	}
}

func TestTeardownDuringRenderDiscardsResult(t *testing.T) {
	compiler := &countingCompiler{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	engine := newTestEngine(t, compiler)

	done := make(chan error, 1)
	go func() {
		_, err := engine.Render(context.Background(), "user-1", testContent(), "modern_ats_v1", nil)
		done <- err
	}()

	<-compiler.started
	engine.TeardownSession("user-1")
	close(compiler.release)

	select {
	case err := <-done:
		if !errors.Is(err, ErrSessionClosed) {
			t.Fatalf("err = %v, want ErrSessionClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("render did not finish")
	}
	if _, err := engine.Store.CurrentMeta("user-1"); !errors.Is(err, artifacts.ErrNoArtifact) {
		t.Fatalf("stale render recorded an artifact: err = %v", err)
	}
}

func TestRestoredArtifactServesCacheHits(t *testing.T) {
	compiler := &countingCompiler{}
	engine := newTestEngine(t, compiler)
	ctx := context.Background()

	if _, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := engine.Store.Persist(ctx, "user-1"); err != nil {
		t.Fatalf("persist: %v", err)
	}

	engine.Teardown()

	restored, err := engine.Store.Restore(ctx, "user-1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	engine.NoteRestored("user-1", restored.Fingerprint)

	result, err := engine.Render(ctx, "user-1", testContent(), "modern_ats_v1", nil)
	if err != nil {
		t.Fatalf("render after restore: %v", err)
	}
	if !result.CacheHit {
		t.Fatalf("restored artifact did not serve the cache hit")
	}
	if compiler.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", compiler.callCount())
	}
}
