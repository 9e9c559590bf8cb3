// Package assist holds the AI collaborator implementations: an offline
// heuristic, an OpenAI-compatible chat client, a gRPC sidecar client, and a
// wrapper that degrades to the heuristic once the remote service pushes back.
package assist

import "errors"

var (
	// ErrRateLimited means the remote service refused the call for quota
	// reasons. Degrading switches to its fallback when it sees this.
	ErrRateLimited = errors.New("collaborator rate limited")
	// ErrMalformed means the response could not be parsed.
	ErrMalformed = errors.New("malformed collaborator response")
	// ErrUnavailable means the remote service could not be reached.
	ErrUnavailable = errors.New("collaborator unavailable")
)
