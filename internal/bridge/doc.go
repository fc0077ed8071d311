// Package bridge connects the messaging provider's webhook to the inquiry
// resolution pipeline. Webhook acknowledgment and processing are decoupled:
// the dispatcher enqueues raw updates so the HTTP handler can answer
// immediately, and the processor consumes them, forwards the text to the
// inquiry endpoint over the network, and relays the reply to the chat.
// Failures are absorbed with a best-effort apology message; nothing ever
// propagates back to the webhook response.
package bridge
