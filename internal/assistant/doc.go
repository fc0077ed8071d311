// Package assistant composes the resolver, speech services and audio
// device into the conversational front-end used by the CLI. Text turns
// need only a resolver; voice turns run the capture-transcribe-resolve-
// synthesize-play loop.
package assistant
