package packet

import (
	"fmt"
	"sort"

	"github.com/crust-proxy/crust/internal/version"
)

// versionedID is one (since-version, wire-byte) tuple for a packet. A
// packet's wire byte for a given runtime protocol version is whichever tuple
// has the largest since that is <= the runtime version - "latest applicable
// entry wins" binding, matching original_source/src/server/packet_ids.rs's
// begin! macro tables (which are materialized per supported version by
// iterating declared ranges in reverse).
type versionedID struct {
	since version.Protocol
	wire  byte
}

type key struct {
	dir   Direction
	state State
	id    ID
}

// Registry is the declarative (direction, state, id) -> [(since, wire)...]
// table. It is built once at startup from Register calls and is read-only
// (and therefore goroutine-safe) after Freeze.
type Registry struct {
	entries map[key][]versionedID
	frozen  bool
}

// NewRegistry returns an empty, unfrozen registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key][]versionedID)}
}

// Register declares that, starting at protocol version since, packets of id
// id in direction dir and state state use wire byte wire. Multiple calls for
// the same (dir, state, id) with increasing since values describe a packet
// whose wire id changed across releases.
func (r *Registry) Register(dir Direction, state State, id ID, since version.Protocol, wire byte) {
	if r.frozen {
		panic("packet: Register called on frozen registry")
	}
	k := key{dir, state, id}
	r.entries[k] = append(r.entries[k], versionedID{since: since, wire: wire})
}

// Freeze sorts every entry list descending by since so Lookup/WireByte can
// linear-scan for "largest since <= version" in the same reverse-iteration
// style as the source this is grounded on.
func (r *Registry) Freeze() *Registry {
	for k, list := range r.entries {
		sort.Slice(list, func(i, j int) bool { return list[i].since > list[j].since })
		r.entries[k] = list
	}
	r.frozen = true
	return r
}

// WireByte returns the wire byte id's packet uses at protocol pv, for
// encoding a packet of this semantic ID onto the wire.
func (r *Registry) WireByte(dir Direction, state State, id ID, pv version.Protocol) (byte, bool) {
	list := r.entries[key{dir, state, id}]
	for _, v := range list {
		if pv >= v.since {
			return v.wire, true
		}
	}
	return 0, false
}

// Lookup is the decode-direction counterpart of WireByte: given a wire byte
// observed on the connection, find which semantic ID it maps to at protocol
// pv. Only IDs registered for (dir, state) are considered; this is a small
// linear scan bounded by the (tiny) whitelist size, not a hot-path concern.
func (r *Registry) Lookup(dir Direction, state State, pv version.Protocol, wire byte) (ID, bool) {
	for k, list := range r.entries {
		if k.dir != dir || k.state != state {
			continue
		}
		for _, v := range list {
			if pv >= v.since && v.wire == wire {
				return k.id, true
			}
			if pv >= v.since {
				break // this ID's applicable entry at pv doesn't match wire
			}
		}
	}
	return 0, false
}

// MustWireByte panics if id has no applicable entry at pv, matching the
// original's get_full_*_packet_buf helpers, which treat "packet type not
// registered for this version/state" as a programmer error, not a runtime
// condition to recover from: every whitelisted packet this proxy constructs
// itself must be registered for every version in version.Supported.
func (r *Registry) MustWireByte(dir Direction, state State, id ID, pv version.Protocol) byte {
	b, ok := r.WireByte(dir, state, id, pv)
	if !ok {
		panic(fmt.Sprintf("packet: id %d not registered for state %s dir %d at protocol %d", id, state, dir, pv))
	}
	return b
}

// Default is the process-wide registry, built and frozen by
// buildDefaultRegistry in tables.go during package initialization.
var Default = buildDefaultRegistry()
