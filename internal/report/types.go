package report

// Report is the JSON record of one compress or convert run.
type Report struct {
	Version     int      `json:"version"`
	GeneratedAt string   `json:"generated_at"`
	Operation   string   `json:"operation"`         // "compress" or "convert"
	Quality     float64  `json:"quality,omitempty"` // compress only
	Target      string   `json:"target,omitempty"`  // convert only
	RunInfo     *RunInfo `json:"run_info,omitempty"`
	Entries     []Entry  `json:"entries"`
	Stats       Stats    `json:"stats"`
}

// RunInfo captures run parameters for diagnostics.
type RunInfo struct {
	Workers  int    `json:"workers"`
	Encoders string `json:"encoders"`
}

// Entry describes one submitted file.
type Entry struct {
	ID            string `json:"id"`
	Source        string `json:"source"`
	Output        string `json:"output,omitempty"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	OriginalSize  int64  `json:"original_size"`
	ProcessedSize *int64 `json:"processed_size,omitempty"`
	OutputFormat  string `json:"output_format,omitempty"`
	Fallback      bool   `json:"fallback,omitempty"`
	Hash          string `json:"hash,omitempty"` // first 16 hex chars of xxhash64 of the output
}

// Stats aggregates run metrics. Byte totals cover completed entries only.
type Stats struct {
	TotalFiles       int   `json:"total_files"`
	Completed        int   `json:"completed"`
	Failed           int   `json:"failed"`
	Pending          int   `json:"pending"`
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	SavedBytes       int64 `json:"saved_bytes"`
}

// Operations.
const (
	OpCompress = "compress"
	OpConvert  = "convert"
)

// SupportedVersion is the current schema version.
const SupportedVersion = 1

// HashLen is the number of hex characters kept from output hashes.
const HashLen = 16
