package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SummaryFileName is the name of the JSON summary artifact.
const SummaryFileName = "capture-summary.json"

// ArtifactWriter handles writing capture artifacts
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
	}
}

// WriteSummaryJSON writes the capture summary as JSON and returns its path
func (w *ArtifactWriter) WriteSummaryJSON(summary *CaptureSummary) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, SummaryFileName)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal capture summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return "", fmt.Errorf("failed to write capture summary: %w", writeErr)
	}

	return path, nil
}

// CaptureSummary contains the outcome of one capture
type CaptureSummary struct {
	SessionID string        `json:"session_id,omitempty"`
	URL       string        `json:"url"`
	Status    string        `json:"status"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Tiles     int           `json:"tiles"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Scale     float64       `json:"scale,omitempty"`
	File      string        `json:"file,omitempty"`
	URLOut    string        `json:"file_url,omitempty"`
	Bytes     int64         `json:"bytes,omitempty"`
	Format    string        `json:"format,omitempty"`
	MIMEType  string        `json:"mime_type,omitempty"`
	Error     string        `json:"error,omitempty"`
}
