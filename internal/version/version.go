// Package version holds the protocol version table for Minecraft Java edition
// and the subset of versions this proxy actually speaks to backends.
package version

import "fmt"

// Protocol is a Minecraft Java edition protocol number, as sent in the
// handshake packet's protocolVersion field.
type Protocol int32

// Named protocol constants, covering the full historical range the packet
// registry can express version gates against (47-769). Only a contiguous
// tail of these (see Supported) is accepted at runtime.
const (
	R1_8     Protocol = 47
	R1_9     Protocol = 107
	R1_11    Protocol = 315
	R1_12_2  Protocol = 340
	R1_13    Protocol = 393
	R1_16    Protocol = 735
	R1_17    Protocol = 755
	R1_18    Protocol = 757
	R1_19    Protocol = 759
	R1_19_1  Protocol = 760
	R1_19_3  Protocol = 761
	R1_19_4  Protocol = 762
	R1_20    Protocol = 763
	R1_20_2  Protocol = 764
	R1_20_3  Protocol = 765
	R1_20_5  Protocol = 766
	R1_21    Protocol = 767
	R1_21_2  Protocol = 768
	R1_21_4  Protocol = 769
)

// Supported lists the protocol versions this proxy will actually negotiate
// with a client and speak to a backend. Versions outside this range are
// rejected during the handshake with an "unsupported protocol version" kick,
// even though the packet registry below carries gates for the full 47-769
// range so intercepted packet layouts stay correct for documentation and for
// any future widening of Supported.
var Supported = []Protocol{R1_20_2, R1_20_3, R1_20_5, R1_21, R1_21_2, R1_21_4}

// IsSupported reports whether p is one this proxy accepts at runtime.
func IsSupported(p Protocol) bool {
	for _, s := range Supported {
		if s == p {
			return true
		}
	}
	return false
}

// Min and Max of the Supported range, used for status response protocol
// negotiation and log messages.
func Min() Protocol { return Supported[0] }
func Max() Protocol { return Supported[len(Supported)-1] }

// Range renders the supported range as a human string, e.g. "protocol 764-769".
func Range() string {
	return fmt.Sprintf("protocol %d-%d", Min(), Max())
}

// GreaterEqual reports whether p >= other.
func (p Protocol) GreaterEqual(other Protocol) bool { return p >= other }

// Less reports whether p < other.
func (p Protocol) Less(other Protocol) bool { return p < other }
