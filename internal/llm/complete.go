package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

// ResponseError reports a provider reply that could not be used.
// Reason is one of common.ReasonEmptyResponse, ReasonInvalidJSON or
// ReasonSchemaMismatch.
type ResponseError struct {
	Reason string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *ResponseError) Unwrap() error { return e.Err }

// CompleteJSON runs one completion and returns the cleaned JSON document:
// fences stripped, money fields sanitized, structure checked against schema.
// Provider errors are returned as is.
func CompleteJSON(ctx context.Context, c Completer, req CompletionRequest, schema map[string]any, money MoneyFields, log *zap.SugaredLogger) ([]byte, error) {
	log = common.RunLogger(ctx, logger.OrNop(log))
	start := time.Now()

	content, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	content = StripCodeFences(content)
	if strings.TrimSpace(content) == "" {
		return nil, &ResponseError{Reason: common.ReasonEmptyResponse, Err: errors.New("provider returned no content")}
	}

	raw := []byte(content)
	if !json.Valid(raw) {
		return raw, &ResponseError{Reason: common.ReasonInvalidJSON, Err: errors.Newf("response is not valid JSON: %.120q", content)}
	}

	if money != nil {
		cleaned, changed, err := SanitizeMoneyFields(raw, money)
		if err != nil {
			// valid JSON that is not an object
			return raw, &ResponseError{Reason: common.ReasonSchemaMismatch, Err: err}
		}
		if len(changed) > 0 {
			log.Warnw("llm.complete.sanitized", "changed", changed)
		}
		raw = cleaned
	}

	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		return raw, &ResponseError{Reason: common.ReasonSchemaMismatch, Err: err}
	}

	log.Debugw("llm.complete.ok", "bytes", len(raw), "elapsed_ms", time.Since(start).Milliseconds())
	return raw, nil
}

// FailureReason classifies an error returned by CompleteJSON.
func FailureReason(ctx context.Context, err error) string {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.Reason
	}
	return common.ReasonFor(ctx, err, common.ReasonProvider)
}
