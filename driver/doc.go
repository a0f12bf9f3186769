// Package driver executes rendered statements against a bun database or
// transaction and hides dialect differences in generated key retrieval.
package driver
