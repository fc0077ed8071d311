// Package audio drives the local capture and playback devices through
// external commands (arecord/aplay by default). The manager serializes
// device access so capture and playback never overlap.
package audio
