// Package api defines the core data types shared by the flow orchestration
// layer
//
// This package contains flow definitions, input and output schemas, prompt
// templates, model invocation specs, typed flow errors, execution events and
// the HTTP messages exchanged with the server
package api
