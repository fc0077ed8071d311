// Package cli implements the interactive terminal loops for the
// assistant: a line-based text mode and a microphone-driven voice mode.
package cli
