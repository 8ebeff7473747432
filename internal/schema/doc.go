// Package schema validates flow inputs and outputs against their declared
// api.Schema
package schema
