package extract

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
	"github.com/joseph-ayodele/invoice-vouchers/internal/ocr"
)

// OCRAdapter wraps an ocr.Recognizer with optional preprocessing, a
// timeout and OCR_FAILURE errors.
type OCRAdapter struct {
	recognizer ocr.Recognizer
	prep       *ocr.Preprocessor
	timeout    time.Duration
	log        *zap.SugaredLogger
}

// NewOCRAdapter builds the adapter. prep may be nil to skip preprocessing.
func NewOCRAdapter(r ocr.Recognizer, prep *ocr.Preprocessor, timeout time.Duration, log *zap.SugaredLogger) *OCRAdapter {
	return &OCRAdapter{recognizer: r, prep: prep, timeout: timeout, log: logger.OrNop(log)}
}

// PerformOCR implements TextRecognizer.
func (a *OCRAdapter) PerformOCR(ctx context.Context, imagePath string) (OCRResult, error) {
	ctx, cancel := common.WithStageTimeout(ctx, a.timeout)
	defer cancel()
	log := common.RunLogger(ctx, a.log)

	path := imagePath
	if a.prep != nil {
		out, cleanup, err := a.prep.Apply(ctx, imagePath)
		if err != nil {
			log.Errorw("ocr.preprocess.failed", "path", imagePath, "error", err)
			return OCRResult{}, common.NewOCRFailure(common.ReasonFor(ctx, err, common.ReasonProvider), err)
		}
		defer cleanup()
		path = out
	}

	r, err := a.recognizer.Recognize(ctx, path)
	if err != nil {
		reason := common.ReasonFor(ctx, err, common.ReasonProvider)
		log.Errorw("ocr.recognize.failed", "path", imagePath, "reason", reason, "error", err)
		return OCRResult{}, common.NewOCRFailure(reason, err)
	}
	if strings.TrimSpace(r.Text) == "" {
		log.Warnw("ocr.recognize.empty", "path", imagePath, "provider", r.Provider)
		return OCRResult{}, common.NewOCRFailure(common.ReasonEmptyText, errors.New("no text recognized in image"))
	}

	return OCRResult{
		Text:       r.Text,
		Confidence: r.Confidence,
		Provider:   r.Provider,
		Warnings:   r.Warnings,
	}, nil
}
