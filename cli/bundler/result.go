package bundler

import "time"

// Result describes one bundling run
type Result struct {
	Output     string        `json:"output" yaml:"output"`
	TotalBytes int           `json:"total_bytes" yaml:"total_bytes"`
	Files      []FileReport  `json:"files" yaml:"files"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// FileReport is the outcome for a single manifest entry
type FileReport struct {
	Path  string `json:"path" yaml:"path"`
	Found bool   `json:"found" yaml:"found"`
	// InputBytes is the size of the file as read from disk
	InputBytes int `json:"input_bytes" yaml:"input_bytes"`
	// OutputBytes is what the entry contributed to the bundle, header included
	OutputBytes int `json:"output_bytes" yaml:"output_bytes"`
}

// Missing returns the manifest paths that were skipped because they do not exist
func (r *Result) Missing() []string {
	var missing []string
	for _, f := range r.Files {
		if !f.Found {
			missing = append(missing, f.Path)
		}
	}
	return missing
}

// Bundled returns the number of manifest entries included in the output
func (r *Result) Bundled() int {
	n := 0
	for _, f := range r.Files {
		if f.Found {
			n++
		}
	}
	return n
}
