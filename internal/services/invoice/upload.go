package invoice

import (
	"encoding/base64"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/pipeline"
)

// ProcessRequest is the inbound submission. FileData is base64, with or
// without a data: URL prefix.
type ProcessRequest struct {
	FileData string `json:"fileData" validate:"required"`
	FileName string `json:"fileName" validate:"required,max=255"`
	FileType string `json:"fileType" validate:"required"`
}

// DecodeRequest validates req and returns the decoded upload. Every
// problem is reported in one VALIDATION_ERROR.
func DecodeRequest(req ProcessRequest) (pipeline.Upload, error) {
	v := common.NewValidator().Merge(common.ValidateStruct(req))

	var data []byte
	if req.FileData != "" {
		var err error
		data, err = decodeBase64(req.FileData)
		if err != nil {
			data = nil
			v.Add("fileData", nil, "must be valid base64")
		}
	}
	up := pipeline.Upload{Data: data, FileName: strings.TrimSpace(req.FileName), MimeType: req.FileType}
	if data != nil {
		checkContent(v, up)
	}
	checkNameAndType(v, up)

	if err := v.Error(); err != nil {
		return pipeline.Upload{}, err
	}
	return up, nil
}

// ValidateUpload applies the same rules to raw bytes (multipart or CLI).
func ValidateUpload(up pipeline.Upload) error {
	v := common.NewValidator()
	v.Field("fileName", up.FileName, common.Required)
	v.Field("fileType", up.MimeType, common.Required)
	if len(up.Data) == 0 {
		v.Add("fileData", nil, "is required")
	} else {
		checkContent(v, up)
	}
	checkNameAndType(v, up)
	return v.Error()
}

func checkNameAndType(v *common.Validator, up pipeline.Upload) {
	if up.FileName != "" {
		ext := constants.NormalizeExt(filepath.Ext(up.FileName))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			v.Add("fileName", up.FileName, "extension must be one of .jpg, .jpeg, .png")
		}
	}
	v.Field("fileType", up.MimeType, common.OneOf(constants.AllowedMimeTypes, constants.NormalizeMime))
}

func checkContent(v *common.Validator, up pipeline.Upload) {
	v.Field("fileData", up.Data, common.MaxBytes(constants.MaxUploadBytes))
	if !filetype.IsMIME(up.Data, "image/jpeg") && !filetype.IsMIME(up.Data, "image/png") {
		kind, _ := filetype.Match(up.Data)
		detected := kind.MIME.Value
		if detected == "" {
			detected = "unknown"
		}
		v.Add("fileData", detected, "content is not a JPEG or PNG image")
	}
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// some clients strip padding
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return b, nil
}
