package model

// Export defines where accepted alphas are written after a run
type Export struct {
	File   string `json:"file"`   // base file name, e.g. alphas.json
	Format string `json:"format"` // json or csv (json when empty)
	DB     bool   `json:"db"`     // also insert into the alphas table
}

// Workers defines worker counts for the stages that fan out
type Workers struct {
	Validation int `json:"validation"`
}

// GenerationRunSpec is the full configuration of one generation run.
// It is what POST /api/v1/runs accepts and what the CLI builds from flags.
type GenerationRunSpec struct {
	Count    int      `json:"count"`              // number of expressions to generate
	Mode     string   `json:"mode"`               // basic, creative or optimized
	Optimize bool     `json:"optimize"`           // run the parameter optimizer before validation
	Export   *Export  `json:"export,omitempty"`   // output rules
	Workers  Workers  `json:"workers"`            // per-stage concurrency
	Timeout  string   `json:"timeout,omitempty"`  // e.g. "5m"
	Datasets []string `json:"datasets,omitempty"` // override the default catalog datasets
}

// RunRecord is the stored view of a run as returned by the API
type RunRecord struct {
	ID        string            `json:"id"`
	Spec      GenerationRunSpec `json:"spec"`
	Status    string            `json:"status"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
}
