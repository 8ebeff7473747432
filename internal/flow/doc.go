// Package flow holds the flow catalog and executes flow requests. A single
// request moves through input validation, prompt rendering, one model
// invocation and output validation. Batches of requests fan out concurrently
// and are joined in input order
package flow
