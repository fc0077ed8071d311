// Package llm contains adapters for invoking hosted large language models.
// It abstracts away provider-specific APIs and normalizes the prompt-in /
// completion-out lifecycle used by the inquiry resolver.
package llm
