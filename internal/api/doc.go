// Package api exposes the HTTP surface of the assistant daemon: the
// inquiry endpoint, health and status probes, the messaging webhook,
// and Prometheus-style metrics. Handlers stay thin; all resolution
// logic lives behind the InquiryResolver interface.
package api
