package model

// Checkout identifies a local working copy of a project's repository.
// Owned by the acquisition layer once cloned; read and written by the
// conversion pipeline while a run is active.
type Checkout struct {
	ProjectID string
	Path      string
	RepoURL   string
	Branch    string
}

// AcquireResult is the outcome of a clone-or-refresh attempt.
type AcquireResult struct {
	Success   bool
	LocalPath string
	Message   string
	Err       error
}

// ScanOutcome classifies an edge-runtime declaration scan. Distinguishing
// "nothing matched" from a tooling failure keeps a clean checkout from being
// reported as a scan error.
type ScanOutcome int

const (
	ScanNoMatch ScanOutcome = iota
	ScanMatched
	ScanToolingError
)

// ScanResult is the outcome of scanning a checkout for edge-runtime
// export declarations.
type ScanResult struct {
	Outcome ScanOutcome
	Files   []string
	Err     error
}
