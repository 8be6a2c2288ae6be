package harness

// TraceEvent records what one scenario step produced.
type TraceEvent struct {
	Step           int            `json:"step"` // 1-based
	Entity         string         `json:"entity"`
	RunID          string         `json:"run_id,omitempty"`
	Fingerprint    string         `json:"fingerprint,omitempty"`
	Strategy       string         `json:"strategy,omitempty"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
	Cached         bool           `json:"cached,omitempty"`
	Statement      string         `json:"statement,omitempty"`
	Params         map[string]any `json:"params,omitempty"`

	// ErrorCode is set when the step failed to compile.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}

// step returns the trace event of the 1-based step n.
func (r *Result) step(n int) (TraceEvent, bool) {
	if n < 1 || n > len(r.Trace) {
		return TraceEvent{}, false
	}
	return r.Trace[n-1], true
}
