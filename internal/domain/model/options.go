package model

// ConvertOptions controls one conversion run.
type ConvertOptions struct {
	// EnableCache wires the KV incremental cache into the generated
	// adapter and deploy configs.
	EnableCache bool
	// CacheNamespaceID is the KV namespace bound when EnableCache is set.
	// An empty id with EnableCache on yields an empty binding list.
	CacheNamespaceID string
	// CreateBranch checks out a new working branch after acquisition.
	// Branch creation failure is non-fatal; the run proceeds on whatever
	// branch the clone produced.
	CreateBranch bool
	BranchName   string
	// CommitAndPush publishes the converted checkout. Best-effort: a push
	// failure downgrades to a warning, local conversion is the primary
	// success criterion.
	CommitAndPush bool
	// ManifestSubPath locates the package manifest when it is not at the
	// checkout root (monorepo layouts).
	ManifestSubPath string
}
