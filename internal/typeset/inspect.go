package typeset

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Inspection holds quality metadata derived from a compiled artifact.
type Inspection struct {
	PageCount int
	// HasTextLayer reports whether text can be extracted from the document.
	// Applicant tracking systems cannot read image-only output, so a false
	// value is worth surfacing to the user.
	HasTextLayer bool
}

// Inspect validates the compiled PDF structurally and probes its text layer.
// Callers treat inspection failures as degraded metadata, not render failures.
func Inspect(data []byte) (Inspection, error) {
	conf := pdfcpumodel.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return Inspection{}, fmt.Errorf("pdfcpu validate: %w", err)
	}

	text, err := extractPlainText(data)
	if err != nil {
		// Structure is valid but the text probe failed; report a missing
		// text layer rather than an inspection error.
		return Inspection{PageCount: pdfCtx.PageCount}, nil
	}
	return Inspection{
		PageCount:    pdfCtx.PageCount,
		HasTextLayer: strings.TrimSpace(text) != "",
	}, nil
}

func extractPlainText(data []byte) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
