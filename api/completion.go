package api

// Completion is fired exactly once with the final Status of an
// operation that returned StatusInProgress. Implementations must not
// block; heavy work triggered by a completion should be dispatched
// elsewhere.
type Completion func(status Status)

// InvokeCompletion calls comp if non-nil. Safe to call with a nil
// completion for fire-and-forget submissions.
func InvokeCompletion(comp Completion, status Status) {
	if comp != nil {
		comp(status)
	}
}
