package server

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
)

// ErrorDomain is the ErrorInfo domain for pipeline failures.
const ErrorDomain = "invoicevoucher"

// toStatus maps service errors onto gRPC status codes. Only summarized
// messages leave the process; causes stay in the logs.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var pf *common.ProcessingFailedError
	if errors.As(err, &pf) {
		return processingStatus(pf)
	}

	if ae, ok := common.AsAppError(err); ok {
		switch ae.Code {
		case common.CodeValidation:
			return badRequest(ae)
		case common.CodeNotFound:
			return status.Error(codes.NotFound, ae.Message)
		}
	}
	return status.Error(codes.Internal, "internal error")
}

func badRequest(ae *common.AppError) error {
	st := status.New(codes.InvalidArgument, ae.Message)
	br := &errdetails.BadRequest{}
	for _, f := range ae.Fields {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       f.Field,
			Description: f.Message,
		})
	}
	if withDetails, err := st.WithDetails(br); err == nil {
		st = withDetails
	}
	return st.Err()
}

func processingStatus(pf *common.ProcessingFailedError) error {
	code := codes.FailedPrecondition
	meta := map[string]string{"stage": string(pf.Stage)}
	if ae, ok := common.AsAppError(pf.Cause); ok {
		meta["code"] = ae.Code
		if ae.Reason != "" {
			meta["reason"] = ae.Reason
		}
		switch {
		case ae.Reason == common.ReasonTimeout:
			code = codes.DeadlineExceeded
		case ae.Code == common.CodePersistence:
			code = codes.Internal
		}
	}

	msg := "processing failed at " + string(pf.Stage)
	if ae, ok := common.AsAppError(pf.Cause); ok && ae.Message != "" {
		msg += ": " + ae.Message
	}
	st := status.New(code, msg)
	info := &errdetails.ErrorInfo{Reason: string(pf.Stage), Domain: ErrorDomain, Metadata: meta}
	if withDetails, err := st.WithDetails(info); err == nil {
		st = withDetails
	}
	return st.Err()
}
