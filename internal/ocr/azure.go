package ocr

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

const providerAzure = "azure-computervision"

// printedTextAPI is the part of the Computer Vision client we call.
type printedTextAPI interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, imageParameter io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// AzureRecognizer reads printed text with Azure Cognitive Services.
type AzureRecognizer struct {
	client   printedTextAPI
	language computervision.OcrLanguages
	log      *zap.SugaredLogger
}

func NewAzureRecognizer(endpoint, apiKey string, languages []string, log *zap.SugaredLogger) *AzureRecognizer {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &AzureRecognizer{
		client:   client,
		language: azureLanguage(languages),
		log:      logger.OrNop(log),
	}
}

var azureLanguages = map[string]computervision.OcrLanguages{
	"eng": computervision.OcrLanguagesEn,
	"deu": computervision.OcrLanguagesDe,
	"fra": computervision.OcrLanguagesFr,
	"spa": computervision.OcrLanguagesEs,
	"ita": computervision.OcrLanguagesIt,
	"nld": computervision.OcrLanguagesNl,
	"por": computervision.OcrLanguagesPt,
}

func azureLanguage(langs []string) computervision.OcrLanguages {
	if len(langs) == 1 {
		if l, ok := azureLanguages[langs[0]]; ok {
			return l
		}
	}
	return computervision.OcrLanguagesUnk
}

// Recognize implements Recognizer.
func (a *AzureRecognizer) Recognize(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Provider: providerAzure}, errors.Wrapf(err, "read image %s", path)
	}

	out, err := a.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(data)), a.language)
	if err != nil {
		a.log.Errorw("ocr.azure.failed", "path", path, "error", err)
		return Result{Provider: providerAzure, Duration: time.Since(start)}, errors.Wrap(err, "azure recognize printed text")
	}

	text := Normalize(ocrResultText(out))
	lang := string(a.language)
	if out.Language != nil {
		lang = *out.Language
	}
	res := Result{
		Text:       text,
		Confidence: heuristicConfidence(text),
		Provider:   providerAzure,
		Language:   lang,
		Duration:   time.Since(start),
	}
	a.log.Infow("ocr.azure.ok",
		"path", path,
		"chars", len(text),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// ocrResultText joins words into lines and lines into regions.
func ocrResultText(r computervision.OcrResult) string {
	if r.Regions == nil {
		return ""
	}
	var b strings.Builder
	for _, region := range *r.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, w := range *line.Words {
				if w.Text != nil {
					words = append(words, *w.Text)
				}
			}
			b.WriteString(strings.Join(words, " "))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
