// Package mapper describes how a record type maps onto a table: primary key,
// record factory, result aliases, per-field read and write masks and key
// generation. Mappers also hydrate result rows into records.
package mapper
