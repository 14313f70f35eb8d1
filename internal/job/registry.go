package job

// Registry is the interface the runner and watchers depend on, so tests
// can substitute fakes for the in-memory store.
type Registry interface {
	Create(id string) error
	Complete(id string, result *ProofResult) error
	Fail(id, errMsg string) error
	Get(id string) (*Job, bool)
	List() []Summary
	Stats() (processing, complete, failed int)
}

var _ Registry = (*Store)(nil)
