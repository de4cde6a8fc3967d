package job

import (
	"fmt"
	"time"
)

type FailureKind int32

const (
	_ FailureKind = iota
	FailureDecode
	FailureTransform
	FailureEncode
	FailureWrite
	FailureCancelled
)

func (f FailureKind) String() string {
	switch f {
	case FailureDecode:
		return "DECODE"
	case FailureTransform:
		return "TRANSFORM"
	case FailureEncode:
		return "ENCODE"
	case FailureWrite:
		return "WRITE"
	case FailureCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN KIND %d", f)
	}
}

// Failure records one failed job. Failures never abort sibling jobs.
type Failure struct {
	SourcePath string      `json:"source_path"`
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
}

// OutputFile describes one file produced by a completed job.
type OutputFile struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA3        string `json:"sha3"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// BatchResult aggregates the outcome of one batch run.
type BatchResult struct {
	BatchID    string       `json:"batch_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Failures   []Failure    `json:"failures"`
	Outputs    []OutputFile `json:"outputs"`
}

// Progress is emitted after each job completes. Processed never decreases and
// equals Total exactly once, on the final event.
type Progress struct {
	Processed   int    `json:"processed"`
	Total       int    `json:"total"`
	CurrentFile string `json:"current_file"`
}
