// Package repository reads and writes records described by a mapper.
// Reads hydrate rows into one or more record types; Save decides between
// insert and update from the primary key and runs the before hooks, key
// generator and write masks on the way out.
package repository
