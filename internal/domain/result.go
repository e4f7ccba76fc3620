package domain

type Status string

const (
	StatusMatched   Status = "matched"
	StatusUnmatched Status = "unmatched"
	StatusFailed    Status = "failed"
)

// Resource is an opaque handle to a playable video. The pipeline resolves
// and hands it off; it never opens the file itself.
type Resource struct {
	Name string
	Path string
}

// Result is the terminal outcome of one recognition pass.
type Result struct {
	RequestID string
	Status    Status
	Text      string
	Token     string
	Resource  *Resource
	Available []string
	ErrKind   Kind
	Err       error
}
