// Package scanner implements the adaptive BACnet topology scan.
//
// A scan runs three strictly sequential phases against the bacnet.Client:
// batched Who-Is device discovery over adaptive instance windows, then
// per-network Who-Is-Router-To-Network router discovery, then the
// foreign-device table reads and BDT cross-linking. Requests within a
// phase are awaited one at a time; this bounds broadcast load and keeps
// response attribution unambiguous.
//
// # Adaptive Windows
//
// Who-Is windows tile the configured instance range without gaps or
// overlaps. A prior scan's graph serves as a read-only density hint:
// where it already knows many devices, windows narrow to reduce I-Am
// collision loss; where it knows none, a window covers the full empty
// step in one broadcast.
//
// # Failure Policy
//
// Timeouts and per-window transport errors are expected: they are logged,
// count as zero results, and never abort the scan. Only failing to
// construct the BACnet client at all is fatal, and that happens before
// any traffic is sent. A cancelled scan leaves a valid, possibly
// incomplete graph.
package scanner
