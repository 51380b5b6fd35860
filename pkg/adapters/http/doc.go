// Package http exposes a Controller over a JSON API built on chi.
//
// The routes are described by an embedded OpenAPI document (GET /openapi.yaml)
// and every documented request is validated against it. Status changes stream
// on GET /events as server-sent events.
package http
