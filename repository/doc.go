// Package repository provides a generic repository abstraction built on Bun
// for CRUD operations, querying, pagination, row locking, read-only
// retrieval, transactions, and upsert support, plus the member, team and
// item repositories. Driver errors are reported as the package's sentinel
// errors and can be matched with errors.Is.
package repository
