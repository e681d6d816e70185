package domain

// ProgressEvent is the immutable record broadcast through the
// ProgressBus (spec.md §3, §6 wire shape).
type ProgressEvent struct {
	TaskID         string
	SubTaskID      string // empty when the event is task-level
	Status         Status
	Progress       *float64
	DownloadedB    *int64
	TotalB         *int64
	DownloadSpeed  *string
	ETASeconds     *int
	Bitrate        *string
	Message        string
	ErrorMessage   string
}

// Float64Ptr and friends keep call sites building ProgressEvent
// literals free of repeated local variables.
func Float64Ptr(v float64) *float64 { return &v }
func Int64Ptr(v int64) *int64       { return &v }
func IntPtr(v int) *int             { return &v }
func StringPtr(v string) *string    { return &v }
