// Package results persists accepted test cases: each run gets a
// timestamped folder holding one scenario YAML per finding together with
// copies of its trajectory log and plot, plus a CSV summary.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"palm/scenario"
)

type Writer struct {
	baseDir string
}

// NewWriter creates a fresh timestamped folder under root.
func NewWriter(root string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	baseDir := filepath.Join(root, timestamp)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &Writer{baseDir: baseDir}, nil
}

// BaseDir returns the folder findings are written into.
func (w *Writer) BaseDir() string {
	return w.baseDir
}

// SaveTestCases writes every accepted test case and its artifacts. A
// missing artifact is logged and skipped rather than failing the whole
// run: the scenario description is the primary output, the log and plot
// are conveniences.
func (w *Writer) SaveTestCases(cases []*scenario.TestCase) error {
	for i, tc := range cases {
		name := fmt.Sprintf("test_%d", i)
		if err := tc.SaveYAML(filepath.Join(w.baseDir, name+".yaml")); err != nil {
			return fmt.Errorf("failed to save test case %d: %w", i, err)
		}

		if tc.LogFile != "" {
			if err := copyFile(tc.LogFile, filepath.Join(w.baseDir, name+".ulg")); err != nil {
				log.Warn().Err(err).Str("test", name).Msg("trajectory log not copied")
			}
		}
		if tc.PlotFile != "" {
			if err := copyFile(tc.PlotFile, filepath.Join(w.baseDir, name+".png")); err != nil {
				log.Warn().Err(err).Str("test", name).Msg("plot not copied")
			}
		}
	}
	return w.writeSummary(cases)
}

// writeSummary records one CSV row per finding.
func (w *Writer) writeSummary(cases []*scenario.TestCase) error {
	path := filepath.Join(w.baseDir, "summary.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"test", "id", "obstacles", "min_distance"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}

	for i, tc := range cases {
		row := []string{
			fmt.Sprintf("test_%d", i),
			tc.ID,
			strconv.Itoa(len(tc.Obstacles)),
			strconv.FormatFloat(tc.MinDistance, 'f', 4, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
