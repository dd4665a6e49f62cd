package profile

import "sort"

// Profile is a named compression preset.
type Profile struct {
	Name        string
	Description string
	Quality     float64 // compression quality 0.1-0.9
	Suffix      string  // suggested file suffix, empty for none
}

// Built-in profiles.
var profiles = map[string]Profile{
	"web": {
		Name:        "web",
		Description: "small files for publishing",
		Quality:     0.6,
		Suffix:      "-web",
	},
	"balanced": {
		Name:        "balanced",
		Description: "the default trade-off",
		Quality:     0.8,
	},
	"archive": {
		Name:        "archive",
		Description: "near-original quality, lossless TIFF",
		Quality:     0.9,
	},
	"smallest": {
		Name:        "smallest",
		Description: "aggressive compression",
		Quality:     0.3,
		Suffix:      "-small",
	},
}

// Get returns a profile by name.
func Get(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// Names returns all profile names, sorted.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
