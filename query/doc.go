// Package query builds SELECT, INSERT, UPDATE and DELETE statements from
// table names, field lists and filters written with ":name" placeholders.
// Filters compile to bun's "?" syntax and statements are rendered by bun's
// query builders with values inlined for the target dialect.
package query
