// Package relay is the producer-side client for the relaywatch queue
// directory. It submits job files, polls stream snapshots and results,
// answers interactive questions, and performs the completion handshake
// (read the result, then delete the job record and its sidecars).
//
// The queue directory layout is a stable wire format; this package is the
// reference implementation of the producer half of the protocol.
package relay
