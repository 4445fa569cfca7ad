package entity

import "time"

// File is an accepted upload. Created before OCR and never modified.
type File struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"fileName"`
	FilePath   string    `json:"filePath"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedAt time.Time `json:"uploadedAt"`
}
