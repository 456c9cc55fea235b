package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Output file names inside the output directory.
const (
	MarkdownFileName = "portfolio.md"
	CSVFileName      = "performance.csv"
)

// Generator writes rendered reports to an output directory.
type Generator struct {
	outputDir string
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator writing into outputDir.
func NewGenerator(outputDir string) *Generator {
	return &Generator{
		outputDir: outputDir,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Write renders the report and writes portfolio.md and performance.csv.
// A zero GeneratedAt is stamped with the generator's clock.
func (g *Generator) Write(report *Report) error {
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = g.now()
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(g.outputDir, MarkdownFileName)
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", MarkdownFileName, err)
	}

	csvPath := filepath.Join(g.outputDir, CSVFileName)
	if err := os.WriteFile(csvPath, []byte(RenderCSV(report.Points)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", CSVFileName, err)
	}

	return nil
}
