package models

// UploadInput describes one artifact handed to the blob store.
type UploadInput struct {
	LocalPath  string            `json:"local_path" validate:"required"`
	Key        string            `json:"key" validate:"required"`
	MimeType   string            `json:"mime_type" validate:"required"`
	BucketName string            `json:"bucket_name" validate:"required"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
