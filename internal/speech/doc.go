// Package speech defines the transcription and synthesis contracts used
// by the voice front-end. Concrete backends live in sub-packages.
package speech
