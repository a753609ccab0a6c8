// Package connection is the HTTP client regmesh-cli uses to talk to the
// admin API of a RegMesh node.
//
// Responses use the standard envelope {code, message, request_id, data}.
// ParseResponse unwraps data on success and turns error envelopes into
// *APIError values carrying the RM-* error code.
package connection
