// Package notes generates clinical SOAP notes from encounter transcripts.
package notes

import "context"

// Generator produces SOAP notes from finalized transcripts
type Generator interface {
	// GenerateSOAP turns a transcript into a SOAP note. The returned error
	// message is already classified for client display.
	GenerateSOAP(ctx context.Context, transcript string) (string, error)

	// Probe checks connectivity and authorization against the model backend
	Probe(ctx context.Context) ProbeResult
}

// ProbeResult reports the outcome of a backend connectivity check
type ProbeResult struct {
	Status  string `json:"status"`
	Model   string `json:"model,omitempty"`
	Message string `json:"message"`
}
