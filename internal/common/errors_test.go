package common

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
)

func TestAppErrorIsMatchesByCode(t *testing.T) {
	err := NewOCRFailure(ReasonEmptyText, nil)
	assert.True(t, errors.Is(err, ErrOCRFailure))
	assert.False(t, errors.Is(err, ErrExtraction))

	wrapped := errors.Wrap(err, "stage")
	assert.True(t, errors.Is(wrapped, ErrOCRFailure))
}

func TestProcessingFailedUnwrapsCause(t *testing.T) {
	cause := NewExtractionFailure(ReasonInvalidJSON, errors.New("unexpected token"))
	pf := NewProcessingFailed(constants.StageExtraction, cause)

	assert.Equal(t, constants.StageExtraction, pf.Stage)
	assert.Contains(t, pf.Error(), "extraction")
	assert.Contains(t, pf.Message, "unexpected token")
	assert.True(t, errors.Is(pf, ErrExtraction))

	ae, ok := AsAppError(pf)
	require.True(t, ok)
	assert.Equal(t, ReasonInvalidJSON, ae.Reason)
}

func TestReasonForDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	assert.Equal(t, ReasonTimeout, ReasonFor(ctx, errors.New("boom"), ReasonProvider))
	assert.Equal(t, ReasonProvider, ReasonFor(context.Background(), errors.New("boom"), ReasonProvider))
	assert.Equal(t, ReasonTimeout, ReasonFor(context.Background(), errors.Wrap(context.DeadlineExceeded, "call"), ReasonProvider))
}

func TestValidationFailureListsAllFields(t *testing.T) {
	v := NewValidator().
		Field("vendorName", "", Required).
		Field("fileType", "image/gif", OneOf(constants.AllowedMimeTypes, constants.NormalizeMime)).
		Field("fileData", make([]byte, 10), MaxBytes(5))

	require.True(t, v.HasErrors())
	require.Len(t, v.Errors(), 3)

	err := v.Error()
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "vendorName: is required")
	assert.Contains(t, err.Error(), "image/jpeg, image/jpg, image/png")
}

func TestValidateStruct(t *testing.T) {
	type req struct {
		Name string `validate:"required"`
		Kind string `validate:"oneof=a b"`
	}
	errs := ValidateStruct(req{Kind: "c"})
	require.Len(t, errs, 2)
	assert.Equal(t, "Name", errs[0].Field)
	assert.Equal(t, "is required", errs[0].Message)
	assert.Equal(t, "must be one of a b", errs[1].Message)

	assert.Empty(t, ValidateStruct(req{Name: "x", Kind: "a"}))
}
