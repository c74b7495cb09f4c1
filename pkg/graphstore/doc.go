// Package graphstore is a client for the GraphDB REST API.
//
// It covers the calls the ingraph tools need: listing and creating
// repositories, posting JSON-LD statements, SPARQL queries and updates,
// repository size and a best-effort repository summary.
//
// Failures are classified so callers can react without parsing messages:
//
//   - UnavailableError: the server could not be reached or is unhealthy
//   - RejectedError: the server answered with a non-2xx status (status and body kept)
//   - NotFoundError: the repository does not exist
//   - AlreadyExistsError: CreateRepository hit an existing id
//
// The client never retries. Configuration is passed once to NewClient and is
// not read from the environment.
package graphstore
