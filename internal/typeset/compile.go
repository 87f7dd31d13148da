package typeset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"resume-typeset/internal/shared/telemetry"
)

const sourceFileName = "resume.tex"

// Compiler turns substituted source into a compiled PDF artifact. A remote
// compilation service can sit behind this same boundary.
type Compiler interface {
	Compile(ctx context.Context, source string) (CompileResult, error)
}

// CompileResult is the output of one successful compilation.
type CompileResult struct {
	PDF      []byte
	Previews [][]byte
}

// CLICompiler invokes the external typesetting toolchain as a subprocess in a
// scoped, per-call temporary workspace.
type CLICompiler struct {
	// Binary is the compiler executable, e.g. "tectonic" or "pdflatex".
	Binary string
	// PreviewTool rasterizes first pages to PNG; empty disables previews.
	PreviewTool string
	// Timeout bounds one compiler invocation. Zero means 30s.
	Timeout time.Duration
	// MaxArtifactBytes rejects oversized output. Zero means unlimited.
	MaxArtifactBytes int64
}

const defaultCompileTimeout = 30 * time.Second

// Compile writes the source into a fresh workspace, runs the compiler under
// the configured timeout, and classifies failures into ErrToolchainUnavailable,
// ErrCompileTimeout, or ErrCompilerSyntax. The workspace is removed on every
// exit path.
func (c *CLICompiler) Compile(ctx context.Context, source string) (CompileResult, error) {
	if strings.TrimSpace(c.Binary) == "" {
		return CompileResult{}, fmt.Errorf("%w: compiler binary not configured", ErrToolchainUnavailable)
	}
	if _, err := exec.LookPath(c.Binary); err != nil {
		return CompileResult{}, fmt.Errorf("%w: %v", ErrToolchainUnavailable, err)
	}

	workspace, err := os.MkdirTemp("", "typeset-*")
	if err != nil {
		return CompileResult{}, fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(workspace)

	sourcePath := filepath.Join(workspace, sourceFileName)
	if err := os.WriteFile(sourcePath, []byte(source), 0o600); err != nil {
		return CompileResult{}, fmt.Errorf("write source: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultCompileTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Binary, compilerArgs(c.Binary)...)
	cmd.Dir = workspace

	output, err := cmd.CombinedOutput()
	if err != nil {
		return CompileResult{}, classifyCompileError(runCtx, err, output)
	}

	pdfPath := filepath.Join(workspace, "resume.pdf")
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		// Zero exit but no output file still counts as a compiler failure.
		telemetry.Error("typeset.compile.no_output", map[string]any{
			"binary": c.Binary,
			"log":    truncateLog(string(output)),
		})
		return CompileResult{}, fmt.Errorf("%w: compiler produced no output document", ErrCompilerSyntax)
	}

	if c.MaxArtifactBytes > 0 && int64(len(pdf)) > c.MaxArtifactBytes {
		return CompileResult{}, fmt.Errorf("compiled artifact is %d bytes, exceeds limit %d", len(pdf), c.MaxArtifactBytes)
	}

	previews := c.renderPreviews(runCtx, workspace, pdfPath)
	return CompileResult{PDF: pdf, Previews: previews}, nil
}

// compilerArgs returns invocation arguments for known toolchains. latex-family
// binaries need non-interactive flags so a syntax error exits instead of
// waiting on stdin.
func compilerArgs(binary string) []string {
	name := strings.ToLower(filepath.Base(binary))
	if strings.Contains(name, "latex") {
		return []string{"-interaction=nonstopmode", "-halt-on-error", sourceFileName}
	}
	if strings.Contains(name, "tectonic") {
		return []string{"--outdir", ".", sourceFileName}
	}
	return []string{sourceFileName}
}

func classifyCompileError(runCtx context.Context, err error, output []byte) error {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: compiler exceeded time budget", ErrCompileTimeout)
	}
	if errors.Is(err, exec.ErrNotFound) || isExecFormatErr(err) {
		return fmt.Errorf("%w: %v", ErrToolchainUnavailable, err)
	}

	// Raw compiler diagnostics are logged, never surfaced verbatim.
	telemetry.Error("typeset.compile.failed", map[string]any{
		"error": err.Error(),
		"log":   truncateLog(string(output)),
	})
	return fmt.Errorf("%w: %s", ErrCompilerSyntax, summarizeDiagnostics(output))
}

func isExecFormatErr(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr)
}

// summarizeDiagnostics extracts a redacted one-line summary from the compiler
// log: the first error-marker line, with workspace paths stripped.
func summarizeDiagnostics(output []byte) string {
	for _, line := range strings.Split(string(output), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "!") || strings.HasPrefix(strings.ToLower(trimmed), "error") {
			return redactPaths(trimmed)
		}
	}
	return "the document source was rejected by the typesetting compiler"
}

func redactPaths(line string) string {
	fields := strings.Fields(line)
	for i, f := range fields {
		if strings.ContainsRune(f, os.PathSeparator) {
			fields[i] = filepath.Base(f)
		}
	}
	return strings.Join(fields, " ")
}

func truncateLog(log string) string {
	const maxLogBytes = 4096
	if len(log) > maxLogBytes {
		return log[:maxLogBytes] + "...(truncated)"
	}
	return log
}

// renderPreviews rasterizes the first pages to PNG. Previews are best-effort:
// a failure is logged and the compile still succeeds.
func (c *CLICompiler) renderPreviews(ctx context.Context, workspace, pdfPath string) [][]byte {
	if strings.TrimSpace(c.PreviewTool) == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, c.PreviewTool, "-png", "-r", "96", "-f", "1", "-l", "2", pdfPath, "preview")
	cmd.Dir = workspace
	if output, err := cmd.CombinedOutput(); err != nil {
		telemetry.Error("typeset.preview.failed", map[string]any{
			"tool":  c.PreviewTool,
			"error": err.Error(),
			"log":   truncateLog(string(output)),
		})
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(workspace, "preview*.png"))
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	var previews [][]byte
	for _, match := range matches {
		data, err := os.ReadFile(match)
		if err != nil {
			continue
		}
		previews = append(previews, data)
	}
	return previews
}
