package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate     = regexp.MustCompile(`\b(\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4})\b`)
	reCurr     = regexp.MustCompile(`\b(usd|eur|gbp|cad|aud)\b|[$£€]`)
	reAmount   = regexp.MustCompile(`\b\d{1,3}(,\d{3})*(\.\d{2})\b|\b\d+\.\d{2}\b`)
	reKeywords = regexp.MustCompile(`\b(invoice|total|subtotal|tax|due|amount|qty|bill to)\b`)
)

// heuristicConfidence scores text 0-100 by the invoice artifacts it contains.
func heuristicConfidence(txt string) float64 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	txtL := strings.ToLower(txt)
	score := 20.0
	if reDate.MatchString(txtL) {
		score += 20
	}
	if reCurr.MatchString(txtL) {
		score += 15
	}
	if reAmount.MatchString(txtL) {
		score += 15
	}
	if n := len(reKeywords.FindAllString(txtL, -1)); n > 0 {
		score += float64(min(n, 4)) * 5
	}
	if len(txt) > 120 {
		score += 10
	}
	return min(score, 100)
}

// blendConfidence weights the engine score higher when there is one.
func blendConfidence(engine, heuristic float64) float64 {
	if engine <= 0 {
		return heuristic
	}
	return min(0.7*engine+0.3*heuristic, 100)
}
