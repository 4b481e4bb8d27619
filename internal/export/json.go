package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/types"
)

// Report is the downloadable JSON bundle for a backtest.
type Report struct {
	GeneratedAt time.Time              `json:"generatedAt"`
	Stats       backtest.Stats         `json:"stats"`
	Equity      []backtest.EquityPoint `json:"equity"`
	Trades      []types.Trade          `json:"trades"`
	Heatmap     []types.HeatmapTag     `json:"heatmap,omitempty"`
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteFiles writes trades.csv, equity.csv and report.json into dir.
func WriteFiles(dir string, report Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"trades.csv", func(w io.Writer) error { return WriteTradesCSV(w, report.Trades) }},
		{"equity.csv", func(w io.Writer) error { return WriteEquityCSV(w, report.Equity) }},
		{"report.json", func(w io.Writer) error { return WriteJSON(w, report) }},
	}

	var paths []string
	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		if err := writeFile(path, wr.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
