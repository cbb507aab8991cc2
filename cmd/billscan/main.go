// Command billscan runs scanned healthcare billing documents through OCR,
// the AI extraction ensemble and the assessment field mapper.
// Usage: billscan [flags] <file|s3://bucket/key>...
// Output: one JSON result per document on stdout, a summary on stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"billscan/internal/config"
	"billscan/internal/export"
	"billscan/internal/metrics"
	"billscan/internal/pipeline"
	"billscan/internal/port"
	s3storage "billscan/internal/storage/s3"

	_ "billscan/internal/extraction/claude"
	_ "billscan/internal/extraction/gemini"
	_ "billscan/internal/extraction/openai"
	_ "billscan/internal/ocr/azureread"
	_ "billscan/internal/ocr/textract"
	_ "billscan/internal/ocr/vision"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

type flags struct {
	providers   string
	models      string
	concurrency int
	csvPath     string
	xlsxPath    string
	metricsPath string
	timeout     time.Duration
	inputs      []string
}

func parseFlags(cfg *config.Config) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("billscan", flag.ContinueOnError)
	fs.StringVar(&f.providers, "providers", strings.Join(cfg.OCR.Providers, ","), "comma-separated OCR providers, in order")
	fs.StringVar(&f.models, "models", strings.Join(cfg.Models.Enabled, ","), "comma-separated extraction models, in order")
	fs.IntVar(&f.concurrency, "concurrency", cfg.Batch.Concurrency, "documents processed at once")
	fs.StringVar(&f.csvPath, "csv", "", "also write assessments to this CSV file")
	fs.StringVar(&f.xlsxPath, "xlsx", "", "also write assessments to this XLSX file")
	fs.StringVar(&f.metricsPath, "metrics", cfg.Metrics.TextfilePath, "write Prometheus metrics to this textfile")
	fs.DurationVar(&f.timeout, "timeout", 0, "overall deadline for the batch (0 = none)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: billscan [flags] <file|s3://bucket/key>...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, err
	}
	f.inputs = fs.Args()
	if len(f.inputs) == 0 {
		fs.Usage()
		return nil, errors.New("no documents given")
	}
	return f, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	configureLogging(cfg.Log.Level)

	f, err := parseFlags(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	loader := pipeline.NewLoader(int64(cfg.Batch.MaxFileSizeMB)<<20, func() (port.ObjectStorage, error) {
		return s3storage.NewS3Client(&cfg.S3)
	})
	docs, err := loader.Load(ctx, f.inputs)
	if err != nil {
		return err
	}

	p := pipeline.NewFromConfig(cfg)
	opts := pipeline.Options{
		OCRProviders: splitNames(f.providers),
		Models:       splitNames(f.models),
	}
	results := p.ProcessBatch(ctx, docs, opts, f.concurrency)

	if err := writeJSON(os.Stdout, results); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	records := export.FromBatch(results)
	if f.csvPath != "" {
		if err := writeCSV(f.csvPath, records); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}
		log.Printf("billscan: wrote %s", f.csvPath)
	}
	if f.xlsxPath != "" {
		if err := writeXLSX(f.xlsxPath, records); err != nil {
			return fmt.Errorf("writing XLSX: %w", err)
		}
		log.Printf("billscan: wrote %s", f.xlsxPath)
	}
	if f.metricsPath != "" {
		if err := metrics.WriteTextfile(f.metricsPath); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	failed := printSummary(os.Stderr, results)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func configureLogging(level string) {
	switch strings.ToLower(level) {
	case "off", "silent", "quiet":
		log.SetOutput(io.Discard)
	case "debug":
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
}

func splitNames(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type jsonResult struct {
	Document string           `json:"document"`
	Error    string           `json:"error,omitempty"`
	Result   *pipeline.Result `json:"result,omitempty"`
}

func writeJSON(w io.Writer, results []pipeline.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, r := range results {
		out := jsonResult{Document: r.Name, Result: r.Result}
		if r.Err != nil {
			out.Error = r.Err.Error()
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, records []export.Record) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := file.Write(export.BOM); err != nil {
		return err
	}
	w := export.NewCSVWriter(file)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteRecords(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path string, records []export.Record) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteXLSX(file, records)
}

// printSummary prints one colored line per document and returns how many
// failed.
func printSummary(w io.Writer, results []pipeline.BatchResult) int {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	warn := color.New(color.FgYellow, color.Bold).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()

	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(w, "%s %s: %v\n", bad("FAIL"), r.Name, r.Err)
		case len(r.Result.Mapped.FieldConfidence) == 0:
			fmt.Fprintf(w, "%s %s: no fields extracted (ocr=%s)\n", warn("EMPTY"), r.Name, r.Result.OCR.Engine)
		default:
			fmt.Fprintf(w, "%s %s: %s, %d fields, agreement %.2f (ocr=%s %.2f)\n",
				ok("OK"), r.Name, r.Result.Mapped.DocumentType, len(r.Result.Mapped.FieldConfidence),
				r.Result.Consensus.AgreementScore, r.Result.OCR.Engine, r.Result.OCR.Confidence)
		}
	}
	return failed
}
