package render

import (
	"context"
	"errors"
	"sync"
	"time"

	"resume-typeset/internal/artifacts"
	"resume-typeset/internal/fingerprint"
	"resume-typeset/internal/shared/metrics"
	"resume-typeset/internal/shared/telemetry"
	"resume-typeset/internal/shared/util"
	"resume-typeset/internal/templates"
	"resume-typeset/internal/typeset"
	"resume-typeset/resume/model"
)

// ErrSessionClosed indicates the session was torn down while a render was
// still running; the result is discarded.
var ErrSessionClosed = errors.New("session closed during render")

// session tracks the render lifecycle for one user. The generation counter
// lets teardown invalidate a render that is still compiling: the stale
// render notices the bump and discards its result instead of recording it.
type session struct {
	mu          sync.Mutex
	state       State
	fingerprint string
	failCode    string
	failReason  string
	inFlight    bool
	generation  uint64
}

// StatusView is the externally visible session state.
type StatusView struct {
	State       State  `json:"state"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Code        string `json:"code,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// RenderResult is the outcome of a completed render.
type RenderResult struct {
	Artifact artifacts.CompiledArtifact
	CacheHit bool
}

// Engine drives the render state machine: fingerprint the content, serve
// from cache when the current artifact still matches, otherwise substitute
// and compile, then record the new artifact.
type Engine struct {
	Registry *templates.Registry
	Compiler typeset.Compiler
	Store    *artifacts.Store

	mu       sync.Mutex
	sessions map[string]*session
}

// NewEngine constructs an Engine.
func NewEngine(registry *templates.Registry, compiler typeset.Compiler, store *artifacts.Store) *Engine {
	return &Engine{
		Registry: registry,
		Compiler: compiler,
		Store:    store,
		sessions: make(map[string]*session),
	}
}

// Render runs one render for the user. A second call while one is in flight
// fails with ErrRenderInFlight; retries after a failure simply call Render
// again. The session lock is never held across compilation.
func (e *Engine) Render(ctx context.Context, userID string, content model.ResumeContent, templateID string, target *model.JobTarget) (RenderResult, error) {
	sess := e.session(userID)

	sess.mu.Lock()
	if sess.inFlight {
		sess.mu.Unlock()
		return RenderResult{}, ErrRenderInFlight
	}
	sess.inFlight = true
	gen := sess.generation
	if err := sess.transition(StateHashing); err != nil {
		sess.inFlight = false
		sess.mu.Unlock()
		return RenderResult{}, err
	}
	sess.mu.Unlock()

	defer func() {
		sess.mu.Lock()
		sess.inFlight = false
		sess.mu.Unlock()
	}()

	metrics.IncRenderStarted()
	started := time.Now()

	// Hash and render against an immutable snapshot; edits made while the
	// compile is suspended cannot leak into this render.
	content = content.Snapshot()

	tpl := e.Registry.GetByID(templateID)
	fp := fingerprint.Compute(content, tpl.ID, target)

	if e.Store.Valid(userID, fp) {
		artifact, err := e.Store.CurrentMeta(userID)
		if err == nil {
			sess.mu.Lock()
			if sess.generation != gen {
				sess.mu.Unlock()
				return RenderResult{}, ErrSessionClosed
			}
			terr := sess.transition(StateReady)
			if terr == nil {
				sess.fingerprint = fp
				sess.failCode, sess.failReason = "", ""
			}
			sess.mu.Unlock()
			if terr != nil {
				return RenderResult{}, terr
			}
			metrics.IncRenderCacheHit()
			metrics.IncRenderCompleted()
			metrics.ObserveRenderDurationMs(float64(time.Since(started).Milliseconds()))
			telemetry.Info("render cache hit", map[string]any{
				"fingerprint": util.ShortHash(fp),
				"template_id": tpl.ID,
			})
			return RenderResult{Artifact: artifact, CacheHit: true}, nil
		}
	}

	if err := e.advance(sess, gen, StateSubstituting); err != nil {
		return RenderResult{}, err
	}
	source, err := typeset.Substitute(tpl, content)
	if err != nil {
		return RenderResult{}, e.fail(sess, gen, err, tpl.ID)
	}

	if err := e.advance(sess, gen, StateCompiling); err != nil {
		return RenderResult{}, err
	}
	compiled, err := e.Compiler.Compile(ctx, source)
	if err != nil {
		return RenderResult{}, e.fail(sess, gen, err, tpl.ID)
	}

	meta := artifacts.CompiledArtifact{
		Fingerprint: fp,
		TemplateID:  tpl.ID,
		JobTarget:   target,
	}
	if inspection, ierr := typeset.Inspect(compiled.PDF); ierr == nil {
		meta.PageCount = inspection.PageCount
		meta.HasTextLayer = inspection.HasTextLayer
	} else {
		telemetry.Error("artifact inspection failed", map[string]any{
			"error":       ierr.Error(),
			"template_id": tpl.ID,
		})
	}

	sess.mu.Lock()
	if sess.generation != gen {
		sess.mu.Unlock()
		return RenderResult{}, ErrSessionClosed
	}
	artifact, serr := e.Store.SetCurrent(userID, compiled.PDF, meta)
	if serr == nil {
		if terr := sess.transition(StateReady); terr != nil {
			serr = terr
		} else {
			sess.fingerprint = fp
			sess.failCode, sess.failReason = "", ""
		}
	}
	sess.mu.Unlock()
	if serr != nil {
		metrics.IncRenderFailed()
		return RenderResult{}, serr
	}

	metrics.IncRenderCompleted()
	metrics.ObserveRenderDurationMs(float64(time.Since(started).Milliseconds()))
	telemetry.Info("render completed", map[string]any{
		"fingerprint": util.ShortHash(fp),
		"template_id": tpl.ID,
		"size_bytes":  artifact.SizeBytes,
		"page_count":  artifact.PageCount,
	})
	return RenderResult{Artifact: artifact}, nil
}

// Status returns the session state for the user.
func (e *Engine) Status(userID string) StatusView {
	sess := e.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	view := StatusView{State: sess.state}
	if sess.fingerprint != "" {
		view.Fingerprint = sess.fingerprint
	}
	if sess.state == StateFailed {
		view.Code = sess.failCode
		view.Reason = sess.failReason
	}
	return view
}

// NoteRestored records a restored artifact as the session's ready state so
// status and cache validation line up with the current slot.
func (e *Engine) NoteRestored(userID, fp string) {
	sess := e.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.state = StateReady
	sess.fingerprint = fp
	sess.failCode, sess.failReason = "", ""
}

// TeardownSession invalidates any in-flight render for the user, revokes the
// current artifact handle, and resets the session to Idle.
func (e *Engine) TeardownSession(userID string) {
	sess := e.session(userID)
	sess.mu.Lock()
	sess.generation++
	sess.state = StateIdle
	sess.fingerprint = ""
	sess.failCode, sess.failReason = "", ""
	sess.mu.Unlock()
	e.Store.ClearSession(userID)
}

// Teardown resets every session and clears the whole artifact store. Used at
// shutdown.
func (e *Engine) Teardown() {
	e.mu.Lock()
	for _, sess := range e.sessions {
		sess.mu.Lock()
		sess.generation++
		sess.state = StateIdle
		sess.fingerprint = ""
		sess.failCode, sess.failReason = "", ""
		sess.mu.Unlock()
	}
	e.mu.Unlock()
	e.Store.ClearAll()
}

func (e *Engine) session(userID string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[userID]
	if !ok {
		sess = &session{state: StateIdle}
		e.sessions[userID] = sess
	}
	return sess
}

// advance moves the session forward unless it was torn down mid-render.
func (e *Engine) advance(sess *session, gen uint64, to State) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.generation != gen {
		return ErrSessionClosed
	}
	return sess.transition(to)
}

// fail records a structured failure on the session and returns err for the
// caller to surface. A torn-down session swallows the bookkeeping but the
// error still propagates.
func (e *Engine) fail(sess *session, gen uint64, err error, templateID string) error {
	code, reason := failureFor(err)
	sess.mu.Lock()
	if sess.generation == gen {
		if terr := sess.transition(StateFailed); terr == nil {
			sess.failCode = code
			sess.failReason = reason
		}
	}
	sess.mu.Unlock()
	metrics.IncRenderFailed()
	telemetry.Error("render failed", map[string]any{
		"code":        code,
		"error":       err.Error(),
		"template_id": templateID,
	})
	return err
}

// failureFor maps a render error onto the structured failure surfaced by the
// status endpoint. Messages stay redacted: no paths, no raw compiler output.
func failureFor(err error) (code, reason string) {
	switch {
	case errors.Is(err, typeset.ErrTemplate):
		return "template_error", err.Error()
	case errors.Is(err, typeset.ErrCompilerSyntax):
		return "compiler_syntax", err.Error()
	case errors.Is(err, typeset.ErrCompileTimeout):
		return "compile_timeout", "compilation exceeded the configured timeout; retry"
	case errors.Is(err, typeset.ErrToolchainUnavailable):
		return "toolchain_unavailable", "typesetting toolchain is unavailable; retry later"
	default:
		return "render_error", "render failed"
	}
}
