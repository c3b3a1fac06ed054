// Package protocol implements the control-line framing and command grammar
// of spec.md §4.4/§6 (C5): it turns raw bytes into typed Commands, leaving
// data-block framing (which must track ring-buffer offsets) to
// internal/client.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seguro-db/seguro/internal/constants"
)

// Kind identifies which command a Command carries.
type Kind int

const (
	KindHello Kind = iota
	KindPoint
	KindWrite
	KindWriteBatch
	KindEvent
	KindRead
)

func (k Kind) String() string {
	switch k {
	case KindHello:
		return "HELLO"
	case KindPoint:
		return "POINT"
	case KindWrite:
		return "WRITE"
	case KindWriteBatch:
		return "WRITE BATCH"
	case KindEvent:
		return "EVENT"
	case KindRead:
		return "READ"
	default:
		return "UNKNOWN"
	}
}

// Command is a parsed control line, per spec.md §6.
type Command struct {
	Kind Kind

	Point string // KindPoint: the raw "~..." token

	ID     uint64 // KindWrite, KindEvent: event id
	Length uint64 // KindWrite, KindEvent: payload length

	NEvents uint64 // KindWriteBatch: n_events
	StartID uint64 // KindWriteBatch, KindRead: start id
	EndID   uint64 // KindWriteBatch: end id (exclusive)

	Limit uint64 // KindRead: limit
}

// SplitLine strips raw's trailing '\n' terminator and enforces spec.md §6's
// maximum control-line length (127 bytes including the terminator).
func SplitLine(raw []byte) (string, error) {
	if len(raw) > constants.MaxControlLineLen {
		return "", fmt.Errorf("protocol: command too long (%d bytes)", len(raw))
	}
	if len(raw) == 0 || raw[len(raw)-1] != '\n' {
		return "", fmt.Errorf("protocol: command not newline-terminated")
	}
	return string(raw[:len(raw)-1]), nil
}

// Parse parses one control line (without its trailing newline) into a
// Command, per spec.md §6's grammar.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("protocol: empty command")
	}

	switch fields[0] {
	case "HELLO":
		if len(fields) != 2 || fields[1] != "0" {
			return Command{}, fmt.Errorf("protocol: malformed HELLO")
		}
		return Command{Kind: KindHello}, nil

	case "POINT":
		if len(fields) != 2 || !strings.HasPrefix(fields[1], "~") {
			return Command{}, fmt.Errorf("protocol: malformed POINT")
		}
		return Command{Kind: KindPoint, Point: fields[1]}, nil

	case "WRITE":
		if len(fields) >= 2 && fields[1] == "BATCH" {
			if len(fields) != 5 {
				return Command{}, fmt.Errorf("protocol: malformed WRITE BATCH")
			}
			n, err := parseU64(fields[2])
			if err != nil {
				return Command{}, fmt.Errorf("protocol: malformed WRITE BATCH: %w", err)
			}
			start, err := parseU64(fields[3])
			if err != nil {
				return Command{}, fmt.Errorf("protocol: malformed WRITE BATCH: %w", err)
			}
			end, err := parseU64(fields[4])
			if err != nil {
				return Command{}, fmt.Errorf("protocol: malformed WRITE BATCH: %w", err)
			}
			if start >= end {
				return Command{}, fmt.Errorf("protocol: malformed WRITE BATCH: start >= end")
			}
			return Command{Kind: KindWriteBatch, NEvents: n, StartID: start, EndID: end}, nil
		}
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("protocol: malformed WRITE")
		}
		id, err := parseU64(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("protocol: malformed WRITE: %w", err)
		}
		length, err := parseU64(fields[2])
		if err != nil {
			return Command{}, fmt.Errorf("protocol: malformed WRITE: %w", err)
		}
		return Command{Kind: KindWrite, ID: id, Length: length}, nil

	case "EVENT":
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("protocol: malformed EVENT")
		}
		id, err := parseU64(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("protocol: malformed EVENT: %w", err)
		}
		length, err := parseU64(fields[2])
		if err != nil {
			return Command{}, fmt.Errorf("protocol: malformed EVENT: %w", err)
		}
		return Command{Kind: KindEvent, ID: id, Length: length}, nil

	case "READ":
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("protocol: malformed READ")
		}
		start, err := parseU64(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("protocol: malformed READ: %w", err)
		}
		limit, err := parseU64(fields[2])
		if err != nil {
			return Command{}, fmt.Errorf("protocol: malformed READ: %w", err)
		}
		return Command{Kind: KindRead, StartID: start, Limit: limit}, nil

	default:
		return Command{}, fmt.Errorf("protocol: unknown command %q", fields[0])
	}
}

func parseU64(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
