package report

// Report is the JSON written by `sweep --report`, `convert --json` and
// `batch --report`.
type Report struct {
	Version      int     `json:"version"`
	GeneratedAt  string  `json:"generated_at"`
	Source       string  `json:"source"`
	OriginalSize int64   `json:"original_size"`
	Profile      string  `json:"profile,omitempty"`
	Range        *Range  `json:"range,omitempty"`
	Results      []Entry `json:"results"`
	Best         *Best   `json:"best,omitempty"`
	Failure      *Entry  `json:"failure,omitempty"`
	Stats        Stats   `json:"stats"`
}

// Range is the requested sweep range.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Entry is one conversion.
type Entry struct {
	Key           string  `json:"key,omitempty"` // batch only: source path relative to the input dir
	Quality       int     `json:"quality"`
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	OriginalSize  int64   `json:"original_size"`
	ConvertedSize int64   `json:"converted_size,omitempty"`
	ConvertedPath string  `json:"converted_path,omitempty"`
	Backend       string  `json:"backend,omitempty"`
	Format        string  `json:"format,omitempty"`
	Animated      bool    `json:"animated"`
	Frames        int     `json:"frames,omitempty"`
	Heuristic     bool    `json:"heuristic,omitempty"`
	Reduction     float64 `json:"reduction"` // percent of the original saved
}

// Best is the quality with the greatest reduction.
type Best struct {
	Quality   int     `json:"quality"`
	Reduction float64 `json:"reduction"`
}

// Stats aggregates the entries.
type Stats struct {
	Conversions      int   `json:"conversions"`
	Succeeded        int   `json:"succeeded"`
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
}

// SupportedVersion is the current schema version.
const SupportedVersion = 1
