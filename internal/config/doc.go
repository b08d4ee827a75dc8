// Package config defines the analysis settings for the hveto binary and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the parameter grid, the stopping thresholds and the
// run surface options (workers, output files). Core validation of the grid
// itself lives with the analysis engine; this package validates the file
// contents and applies defaults.
package config
