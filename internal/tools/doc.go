// Package tools defines the operations the review and fix agents may invoke.
//
// Each tool pairs a typed argument struct with a handler. The JSON schema
// offered to the model is reflected from the struct, and Dispatch checks raw
// arguments against the same struct before calling the handler, so the two
// contracts cannot drift apart.
//
// Dispatch never returns an error. Unknown tools, bad arguments and
// collaborator failures come back as a Result with IsError set, which the
// agent loop feeds to the model as a tool result.
package tools
