// Package domain defines the core domain types for the bactopo BACnet
// topology scanner.
//
// This package contains the typed node/relation store that represents one
// scan of a BACnet internetwork: devices, routers, broadcast-relay devices
// (BBMDs), IP subnets, and logical BACnet networks.
//
// # Core Types
//
// Kind is the closed set of entity kinds. Every node carries exactly one
// Kind, assigned at construction and immutable afterwards.
//
// Node represents a single discovered entity, addressed by a key of the
// form kind://identifier (device://1234, subnet://10.0.0.0/24). Common
// properties (label, device-instance, address, vendor-id) have overwrite
// semantics: the latest write wins. Relations (device-on-subnet,
// router-to-network, bdt-entry, ...) have append semantics: every write
// adds a target, duplicates are idempotent, and nothing is ever removed.
//
// Graph is the node store for one scan. Exactly one scan owns and mutates
// a Graph at a time; a previous scan's Graph may be consulted read-only as
// a density hint.
//
// # Capability Table
//
// Which relation kinds apply to a node is determined solely by its Kind,
// through a fixed lookup table. Relating a node through a relation its
// Kind does not carry is an error.
//
// # Interchange Form
//
// A Graph serializes to a flat list of triples (subject key, predicate,
// typed object). The triple list is the contract consumed by the snapshot
// store and the diff; see the codec package for the wire encoding.
//
// # Design Principles
//
// - No database or network dependencies
// - Deterministic, sorted serialization
// - Pure domain logic without infrastructure concerns
package domain
