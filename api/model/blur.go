package model

import "mime/multipart"

// UploadRequest is the multipart variant of a blur request. SigmaY and Format
// are nil when the caller left them out.
type UploadRequest struct {
	Image *multipart.FileHeader

	KernelWidth  int
	KernelHeight int
	SigmaX       float64
	SigmaY       *float64
	Format       *string
}

type BlurResult struct {
	ContentType string
	Width       int
	Height      int
	Cached      bool

	Body []byte
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
}
