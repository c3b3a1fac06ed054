package protocol

import "fmt"

// Bracket is the two-byte terminator that follows every data block
// (write payload or READ-response event payload), per spec.md §6.
const Bracket = "\n\n"

// Greeting is sent once, immediately on accept.
func Greeting() string { return "SEGURO 0\n" }

// Identify acknowledges a valid HELLO.
func Identify() string { return "IDENTIFY 0\n" }

// Ready reports the ship's current highest_eid after handshake completes.
func Ready(highestEID uint64) string { return fmt.Sprintf("READY %d\n", highestEID) }

// EventHeader is the per-event header a READ response emits before each
// event's raw payload bytes and Bracket.
func EventHeader(id, length uint64) string { return fmt.Sprintf("EVENT %d %d\n", id, length) }
