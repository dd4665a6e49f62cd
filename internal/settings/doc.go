// Package settings loads, normalizes, and validates imgtool settings.
//
// Settings live in a single TOML or YAML file (chosen by extension) under
// ~/.config/imgtool by default. Missing keys fall back to the defaults of
// the desktop app imgtool replaces: originals are replaced, no custom
// output directory, no suffix. Obtain settings through Load so callers
// receive expanded paths and canonical enum values.
package settings
