// Package report renders finalized evaluation outcomes into durable
// artifacts: a confusion-matrix image, a per-class metric chart, a
// plain-text classification report and machine-readable summaries.
// Presentation only; nothing here computes new statistics, and the
// same inputs always produce the same files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wqzhao/snakeid/internal/evaluate"
)

// Generator writes evaluation artifacts into one output directory.
type Generator struct {
	outDir string
	log    *zap.Logger
}

// New builds a generator rooted at outDir.
func New(outDir string, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{outDir: outDir, log: log}
}

// WriteAll renders every artifact for the outcome and returns the
// written paths. Re-running with the same outcome overwrites the same
// files with identical content.
func (g *Generator) WriteAll(outcome *evaluate.Outcome, sum *evaluate.Summary) ([]string, error) {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	prefix := strings.ToLower(outcome.Split)
	var written []string

	matrixPath := filepath.Join(g.outDir, prefix+"_confusion_matrix.png")
	if err := g.writeConfusionMatrixPNG(matrixPath, outcome, sum); err != nil {
		return written, err
	}
	written = append(written, matrixPath)

	chartPath := filepath.Join(g.outDir, prefix+"_per_class_metrics.png")
	if err := g.writeMetricsPNG(chartPath, sum); err != nil {
		return written, err
	}
	written = append(written, chartPath)

	reportPath := filepath.Join(g.outDir, prefix+"_classification_report.txt")
	if err := os.WriteFile(reportPath, []byte(TextReport(outcome, sum)), 0o644); err != nil {
		return written, fmt.Errorf("write classification report: %w", err)
	}
	written = append(written, reportPath)

	csvPath := filepath.Join(g.outDir, prefix+"_per_class_metrics.csv")
	if err := g.writeCSV(csvPath, sum); err != nil {
		return written, err
	}
	written = append(written, csvPath)

	jsonPath := filepath.Join(g.outDir, "evaluation_summary.json")
	if err := g.writeSummaryJSON(jsonPath, outcome, sum); err != nil {
		return written, err
	}
	written = append(written, jsonPath)

	g.log.Info("evaluation artifacts written",
		zap.String("split", outcome.Split),
		zap.Strings("files", written))
	return written, nil
}

// TextReport renders the classification report: one row per class with
// precision, recall, f1 and support, followed by accuracy, macro and
// weighted average rows.
func TextReport(outcome *evaluate.Outcome, sum *evaluate.Summary) string {
	width := len("weighted avg")
	for _, cm := range sum.PerClass {
		if len(cm.Label.CommonName) > width {
			width = len(cm.Label.CommonName)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s set classification report\n", outcome.Split)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "%*s %10s %10s %10s %10s\n", width, "", "precision", "recall", "f1-score", "support")
	b.WriteString("\n")

	total := 0
	for _, cm := range sum.PerClass {
		fmt.Fprintf(&b, "%*s %10.4f %10.4f %10.4f %10d\n",
			width, cm.Label.CommonName, cm.Precision, cm.Recall, cm.F1, cm.Support)
		total += cm.Support
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %10s %10s %10.4f %10d\n", width, "accuracy", "", "", sum.Accuracy, total)
	fmt.Fprintf(&b, "%*s %10.4f %10.4f %10.4f %10d\n",
		width, "macro avg", sum.Macro.Precision, sum.Macro.Recall, sum.Macro.F1, total)
	fmt.Fprintf(&b, "%*s %10.4f %10.4f %10.4f %10d\n",
		width, "weighted avg", sum.Weighted.Precision, sum.Weighted.Recall, sum.Weighted.F1, total)

	if len(outcome.Failures) > 0 {
		fmt.Fprintf(&b, "\n%d sample(s) excluded (preprocessing failed)\n", len(outcome.Failures))
	}
	return b.String()
}

func (g *Generator) writeCSV(path string, sum *evaluate.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Class", "Precision", "Recall", "F1-Score", "Support"}); err != nil {
		return err
	}
	for _, cm := range sum.PerClass {
		row := []string{
			cm.Label.CommonName,
			strconv.FormatFloat(cm.Precision, 'f', 4, 64),
			strconv.FormatFloat(cm.Recall, 'f', 4, 64),
			strconv.FormatFloat(cm.F1, 'f', 4, 64),
			strconv.Itoa(cm.Support),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type classSummary struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

type splitSummary struct {
	Accuracy          float64                 `json:"accuracy"`
	Loss              float64                 `json:"loss"`
	MacroPrecision    float64                 `json:"macro_precision"`
	MacroRecall       float64                 `json:"macro_recall"`
	MacroF1           float64                 `json:"macro_f1"`
	WeightedPrecision float64                 `json:"weighted_precision"`
	WeightedRecall    float64                 `json:"weighted_recall"`
	WeightedF1        float64                 `json:"weighted_f1"`
	PerClass          map[string]classSummary `json:"per_class_metrics"`
}

func (g *Generator) writeSummaryJSON(path string, outcome *evaluate.Outcome, sum *evaluate.Summary) error {
	perClass := make(map[string]classSummary, len(sum.PerClass))
	for _, cm := range sum.PerClass {
		perClass[cm.Label.CommonName] = classSummary{
			Precision: cm.Precision,
			Recall:    cm.Recall,
			F1:        cm.F1,
			Support:   cm.Support,
		}
	}
	payload := map[string]splitSummary{
		outcome.Split: {
			Accuracy:          sum.Accuracy,
			Loss:              outcome.Loss,
			MacroPrecision:    sum.Macro.Precision,
			MacroRecall:       sum.Macro.Recall,
			MacroF1:           sum.Macro.F1,
			WeightedPrecision: sum.Weighted.Precision,
			WeightedRecall:    sum.Weighted.Recall,
			WeightedF1:        sum.Weighted.F1,
			PerClass:          perClass,
		},
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
