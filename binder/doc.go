// Package binder flattens records into column maps and binds column maps back
// onto records, using the struct metadata bun keeps for its models.
package binder
