package report

import (
	"fmt"
	"os"

	"github.com/AnyUserName/imgtool/internal/hasher"
)

// Validate checks the report against itself and the files on disk. It
// returns one message per problem found.
func Validate(r *Report) []string {
	var errs []string

	if r.Version != SupportedVersion {
		errs = append(errs, fmt.Sprintf("unsupported report version: %d", r.Version))
	}
	if r.Operation != OpCompress && r.Operation != OpConvert {
		errs = append(errs, fmt.Sprintf("unknown operation %q", r.Operation))
	}

	seenIDs := map[string]bool{}
	seenOutputs := map[string]int{}
	for i, e := range r.Entries {
		label := fmt.Sprintf("entry[%d] %s", i, e.Source)

		if e.ID == "" {
			errs = append(errs, label+": missing id")
		} else if seenIDs[e.ID] {
			errs = append(errs, fmt.Sprintf("%s: duplicate id %s", label, e.ID))
		}
		seenIDs[e.ID] = true

		switch e.Status {
		case "completed":
			errs = append(errs, validateCompleted(label, e)...)
			if prev, dup := seenOutputs[e.Output]; dup && e.Output != "" {
				errs = append(errs, fmt.Sprintf("%s: output %s also written by entry[%d]", label, e.Output, prev))
			}
			seenOutputs[e.Output] = i
		case "failed":
			if e.Error == "" {
				errs = append(errs, label+": failed without error message")
			}
			if e.ProcessedSize != nil {
				errs = append(errs, label+": failed entry has processed size")
			}
		case "pending":
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown status %q", label, e.Status))
		}
	}

	// Verify stats consistency.
	want := *r
	want.ComputeStats()
	if want.Stats != r.Stats {
		errs = append(errs, fmt.Sprintf("stats mismatch: report=%+v, entries=%+v", r.Stats, want.Stats))
	}

	return errs
}

func validateCompleted(label string, e Entry) []string {
	var errs []string
	if e.ProcessedSize == nil {
		errs = append(errs, label+": completed without processed size")
	}
	if e.Error != "" {
		errs = append(errs, label+": completed entry has error")
	}
	if e.Output == "" {
		return append(errs, label+": missing output path")
	}

	info, err := os.Stat(e.Output)
	if err != nil {
		return append(errs, fmt.Sprintf("%s: output not found: %s", label, e.Output))
	}
	if e.ProcessedSize != nil && info.Size() != *e.ProcessedSize {
		errs = append(errs, fmt.Sprintf("%s: size mismatch: report=%d, disk=%d", label, *e.ProcessedSize, info.Size()))
	}
	if e.Hash == "" {
		errs = append(errs, label+": missing hash")
	} else if h, err := hasher.FileHash(e.Output, len(e.Hash)); err != nil {
		errs = append(errs, fmt.Sprintf("%s: hash output: %v", label, err))
	} else if h != e.Hash {
		errs = append(errs, fmt.Sprintf("%s: output changed since the run (hash %s, now %s)", label, e.Hash, h))
	}
	return errs
}
