// Package repository defines the snapshot persistence interface.
//
// A snapshot is one scan's topology graph in its canonical triple form,
// stamped with an ID and a capture time. The interface covers saving a
// scan, loading snapshots for diffing, and pruning old snapshots to the
// configured retention limit. The actual implementation is in the sqlite
// subpackage.
//
// # SQLite Implementation
//
// The sqlite implementation stores each snapshot's triples as one JSON
// document, encoded with the same codec used for file export, so a blob
// read straight from the database is a valid export file. It uses WAL
// mode for concurrency and migrates its schema on startup.
package repository
