package main

// Offline render check without the HTTP surface:
//   go run ./cmd/renderdemo -template modern_ats_v1 -out ./out
//
// Substitutes a sample resume into the chosen template, runs the configured
// compiler, and writes the PDF plus any previews to the output directory.

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"resume-typeset/internal/shared/config"
	"resume-typeset/internal/templates"
	"resume-typeset/internal/typeset"
	"resume-typeset/resume/model"
)

func main() {
	templateID := flag.String("template", templates.DefaultTemplateID, "template id to render")
	outDir := flag.String("out", "./out", "output directory")
	sourceOnly := flag.Bool("source-only", false, "write the substituted LaTeX source and skip compilation")
	flag.Parse()

	cfg := config.Load()

	registry, err := templates.NewRegistry()
	if err != nil {
		log.Fatalf("load templates: %v", err)
	}
	tpl := registry.GetByID(*templateID)

	source, err := typeset.Substitute(tpl, sampleContent())
	if err != nil {
		log.Fatalf("substitute: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	sourcePath := filepath.Join(*outDir, tpl.ID+".tex")
	if err := os.WriteFile(sourcePath, []byte(source), 0o644); err != nil {
		log.Fatalf("write source: %v", err)
	}
	fmt.Printf("source: %s\n", sourcePath)
	if *sourceOnly {
		return
	}

	compiler := &typeset.CLICompiler{
		Binary:           cfg.TypesetCompiler,
		PreviewTool:      cfg.PreviewTool,
		Timeout:          cfg.TypesetTimeout,
		MaxArtifactBytes: cfg.MaxArtifactBytes,
	}
	result, err := compiler.Compile(context.Background(), source)
	if err != nil {
		log.Fatalf("compile: %v", err)
	}

	pdfPath := filepath.Join(*outDir, tpl.ID+".pdf")
	if err := os.WriteFile(pdfPath, result.PDF, 0o644); err != nil {
		log.Fatalf("write pdf: %v", err)
	}
	fmt.Printf("pdf: %s (%d bytes)\n", pdfPath, len(result.PDF))

	for i, preview := range result.Previews {
		previewPath := filepath.Join(*outDir, fmt.Sprintf("%s_page%d.png", tpl.ID, i+1))
		if err := os.WriteFile(previewPath, preview, 0o644); err != nil {
			log.Fatalf("write preview: %v", err)
		}
		fmt.Printf("preview: %s\n", previewPath)
	}

	if inspection, err := typeset.Inspect(result.PDF); err == nil {
		fmt.Printf("pages: %d, text layer: %v\n", inspection.PageCount, inspection.HasTextLayer)
	}
}

func sampleContent() model.ResumeContent {
	return model.ResumeContent{
		Header: model.Header{
			Name:     "Jordan Rivera",
			Title:    "Senior Backend Engineer",
			Email:    "jordan.rivera@example.com",
			Phone:    "+1 415 555 0142",
			Location: "San Francisco, CA",
			Links:    []string{"https://github.com/jrivera", "https://jrivera.dev"},
		},
		Summary: []string{
			"Backend engineer with 9 years of experience building document and payment pipelines.",
			"Comfortable owning services end to end, from schema design to production debugging.",
		},
		Skills: model.Skills{
			Languages:   []string{"Go", "Python", "SQL"},
			Frameworks:  []string{"Gin", "gRPC"},
			Databases:   []string{"PostgreSQL", "Redis"},
			CloudDevOps: []string{"AWS", "Terraform", "Docker"},
			Tools:       []string{"Git", "Make"},
		},
		Experience: []model.Experience{
			{
				Company:  "Ledgerline",
				Role:     "Senior Backend Engineer",
				Location: "San Francisco, CA",
				Start:    "2021-04",
				End:      "Present",
				Highlights: []string{
					"Designed the settlement pipeline processing $40M/month with exactly-once semantics.",
					"Cut p99 API latency from 900ms to 120ms by reworking the hot-path queries.",
				},
			},
			{
				Company:  "Paperstack",
				Role:     "Backend Engineer",
				Location: "Remote",
				Start:    "2017-06",
				End:      "2021-03",
				Highlights: []string{
					"Built the document generation service rendering 50k PDFs a day.",
				},
			},
		},
		Projects: []model.Project{
			{
				Name:        "texsmith",
				Description: "Open-source LaTeX build cache",
				Start:       "2020-01",
				End:         "Present",
				Highlights:  []string{"1.2k GitHub stars; used by three documented downstream projects."},
			},
		},
		Education: []model.Education{
			{
				Institution: "University of California, Davis",
				Degree:      "BSc",
				Field:       "Computer Science",
				Start:       "2009-09",
				End:         "2013-06",
			},
		},
		Certifications: []model.Certification{
			{Name: "AWS Solutions Architect Associate", Issuer: "AWS", Date: "2022-08", Expires: "2025-08"},
		},
		SpokenLanguages: []string{"English", "Spanish"},
	}
}
