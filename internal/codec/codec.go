// Package codec provides the wire encoding of the triple interchange form.
//
// A serialized snapshot is a flat document of triples; every node key has
// the form kind://identifier, every predicate is one of the fixed names
// from the domain package, and literal objects carry explicit types. This
// shape is the contract the snapshot store and the diff depend on.
package codec

import (
	"io"

	"bactopo/internal/domain"
)

// Importer parses a serialized triple document.
type Importer interface {
	Parse(r io.Reader) ([]domain.Triple, error)
	Format() string
}

// Exporter writes a triple document.
type Exporter interface {
	Export(triples []domain.Triple, w io.Writer) error
	Format() string
}
