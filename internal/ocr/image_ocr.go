package ocr

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

const providerTesseract = "tesseract"

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	res := Result{Provider: providerTesseract, Language: e.lang()}

	txt, warn, err := e.tesseractOCR(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	if err != nil {
		return res, err
	}
	res.Text = Normalize(txt)

	var ocrConf float64
	if e.cfg.EnableTSVConfidence && res.Text != "" {
		c, w, err := e.tesseractTSVConfidence(ctx, path)
		res.Warnings = append(res.Warnings, w...)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		} else {
			ocrConf = c
		}
	}
	res.Confidence = blendConfidence(ocrConf, heuristicConfidence(res.Text))
	return res, nil
}

func (e *Extractor) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.lang()}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.baseArgs(path)...)
	if err != nil {
		return "", nonEmpty(string(errb)), errors.Wrapf(err, "tesseract: %s", truncate(strings.TrimSpace(string(errb)), 512))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil, nil
}

// tesseractTSVConfidence returns the mean word confidence (0-100).
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float64, []string, error) {
	args := append(e.baseArgs(path), "tsv")
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, nonEmpty(string(errb)), errors.Wrap(err, "tesseract tsv")
	}
	return meanTSVConfidence(string(out)), nil, nil
}

// meanTSVConfidence averages the conf column (the 11th of 12) over words.
func meanTSVConfidence(tsv string) float64 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 || strings.TrimSpace(cols[11]) == "" {
			continue
		}
		v, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || v < 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{s}
}
