package api

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure without internal causes.
type ErrorDetail struct {
	Code    string                   `json:"code"`
	Message string                   `json:"message"`
	Stage   string                   `json:"stage,omitempty"`
	Reason  string                   `json:"reason,omitempty"`
	Fields  []common.ValidationError `json:"fields,omitempty"`
}

// RequestIDMiddleware puts the caller's request id (or a new one) on the
// request context and the response.
func RequestIDMiddleware(c *gin.Context) {
	rid := c.GetHeader(HeaderRequestID)
	if rid == "" {
		rid = uuid.NewString()
	}
	c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), rid))
	c.Header(HeaderRequestID, rid)
	c.Next()
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", common.RequestIDFromContext(c.Request.Context()),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

// ErrorHandler renders the last handler error.
func ErrorHandler(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, detail := describe(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("http.request.failed", "path", c.FullPath(), "error", err,
				"request_id", common.RequestIDFromContext(c.Request.Context()))
		}
		c.JSON(status, ErrorResponse{Success: false, Error: detail})
	}
}

func describe(err error) (int, ErrorDetail) {
	var pf *common.ProcessingFailedError
	if errors.As(err, &pf) {
		d := ErrorDetail{Code: "PROCESSING_FAILED", Message: "processing failed at " + string(pf.Stage), Stage: string(pf.Stage)}
		status := http.StatusUnprocessableEntity
		if ae, ok := common.AsAppError(pf.Cause); ok {
			d.Message += ": " + ae.Message
			d.Reason = ae.Reason
			d.Fields = ae.Fields
			switch {
			case ae.Reason == common.ReasonTimeout:
				status = http.StatusGatewayTimeout
			case ae.Code == common.CodePersistence:
				status = http.StatusInternalServerError
			}
		}
		return status, d
	}

	if ae, ok := common.AsAppError(err); ok {
		d := ErrorDetail{Code: ae.Code, Message: ae.Message, Fields: ae.Fields}
		switch ae.Code {
		case common.CodeValidation:
			return http.StatusBadRequest, d
		case common.CodeNotFound:
			return http.StatusNotFound, d
		}
	}
	return http.StatusInternalServerError, ErrorDetail{Code: "INTERNAL", Message: "an unexpected error occurred"}
}
