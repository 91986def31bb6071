package model

import "time"

type Transfer string

const (
	TransferEncoded   Transfer = "encoded"
	TransferMultipart Transfer = "multipart"
)

// JournalEntry is the record kept for every blur request.
type JournalEntry struct {
	RequestID    string    `bson:"request_id" json:"request_id"`
	Transfer     Transfer  `bson:"transfer" json:"transfer"`
	Engine       string    `bson:"engine" json:"engine"`
	KernelWidth  int       `bson:"kernel_width" json:"kernel_width"`
	KernelHeight int       `bson:"kernel_height" json:"kernel_height"`
	SigmaX       float64   `bson:"sigma_x" json:"sigma_x"`
	SigmaY       float64   `bson:"sigma_y" json:"sigma_y"`
	Format       string    `bson:"format" json:"format"`
	InputBytes   int64     `bson:"input_bytes" json:"input_bytes"`
	OutputBytes  int       `bson:"output_bytes" json:"output_bytes"`
	Width        int       `bson:"width,omitempty" json:"width,omitempty"`
	Height       int       `bson:"height,omitempty" json:"height,omitempty"`
	Cached       bool      `bson:"cached" json:"cached"`
	ErrorKind    string    `bson:"error_kind,omitempty" json:"error_kind,omitempty"`
	Error        string    `bson:"error,omitempty" json:"error,omitempty"`
	Duration     int64     `bson:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
