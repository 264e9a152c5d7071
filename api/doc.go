// Package api serves the pipeline's operational HTTP surface.
//
// The server is deliberately small: a health probe, read-only schema and
// counter endpoints for dashboards, and the token-guarded POST /approve
// flow that flags a registered schema version as promotion-approved.
package api
