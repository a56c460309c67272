package models

const (
	// OperationImport identifies archive import runs
	OperationImport = "import"
	// OperationRender identifies batch page-rendering runs
	OperationRender = "render"
	// OperationExportReport identifies tabular report exports
	OperationExportReport = "export_report"
	// OperationExportBundle identifies bundle document exports
	OperationExportBundle = "export_bundle"
)

// ProgressEvent is pushed to connected clients while a long operation runs.
// Current is monotonic within one run; IsComplete marks the run as finished,
// and the last event of a run always carries it.
type ProgressEvent struct {
	Operation  string `json:"operation_type"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Step       string `json:"step_name"`
	Message    string `json:"message"`
	IsComplete bool   `json:"is_complete"`
}

// NewProgressEvent builds a progress event. The event is marked terminal
// when current has reached total.
func NewProgressEvent(operation string, current, total int, step, message string) ProgressEvent {
	return ProgressEvent{
		Operation:  operation,
		Current:    current,
		Total:      total,
		Step:       step,
		Message:    message,
		IsComplete: current >= total,
	}
}

// CompletedEvent builds the terminal event for an operation
func CompletedEvent(operation string, message string) ProgressEvent {
	return ProgressEvent{
		Operation:  operation,
		Current:    1,
		Total:      1,
		Step:       "done",
		Message:    message,
		IsComplete: true,
	}
}
