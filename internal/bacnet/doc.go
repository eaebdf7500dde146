// Package bacnet provides the BACnet/IP application layer the scanner
// drives: broadcast device discovery (Who-Is / I-Am), per-network router
// discovery (Who-Is-Router-To-Network), and the BACnet Virtual Link Layer
// (BVLL) table reads used to probe broadcast-relay capability.
//
// The scanner consumes the Client interface only. The UDP implementation
// in this package covers exactly the four discovery primitives plus
// optional foreign-device registration; it is not a general BACnet stack.
//
// # Request Correlation
//
// BVLL table reads are correlated through an address-keyed registry of
// single-assignment result slots. At most one probe per address may be
// outstanding; the slot is removed on completion, timeout, and
// cancellation alike, so the registry never leaks entries. A probe
// timeout surfaces as an error the caller treats as a negative result.
package bacnet
