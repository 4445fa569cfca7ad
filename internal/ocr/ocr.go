package ocr

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

// Recognizer turns an image on disk into text.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (Result, error)
}

// Result is what a provider read from one image.
type Result struct {
	Text string
	// Confidence is on a 0-100 scale.
	Confidence float64
	Provider   string
	Language   string
	Duration   time.Duration
	Warnings   []string
}

type Config struct {
	Tesseract string   // binary name or absolute path; if empty -> "tesseract"
	Languages []string // tesseract codes, default ["eng"]

	TessdataDir         string
	EnableTSVConfidence bool

	PSM int // 6 suits a uniform block of text; 0 keeps the tesseract default
	OEM int // 1 = LSTM; 0 keeps the default
}

// Extractor runs the tesseract CLI.
type Extractor struct {
	cfg    Config
	runner Runner
	log    *zap.SugaredLogger
}

func NewExtractor(cfg Config, log *zap.SugaredLogger) *Extractor {
	log = logger.OrNop(log)
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &Extractor{cfg: cfg, runner: execRunner{log: log}, log: log}
}

// WithRunner swaps the command runner; used by tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

func (e *Extractor) lang() string {
	return strings.Join(e.cfg.Languages, "+")
}

// Recognize implements Recognizer.
func (e *Extractor) Recognize(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	e.log.Debugw("ocr.tesseract.start", "path", path, "lang", e.lang())

	res, err := e.extractImage(ctx, path)
	res.Duration = time.Since(start)
	if err != nil {
		e.log.Errorw("ocr.tesseract.failed", "path", path, "error", err, "warnings", res.Warnings)
		return res, err
	}
	e.log.Infow("ocr.tesseract.ok",
		"path", path,
		"chars", len(res.Text),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
