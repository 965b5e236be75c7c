// Package command defines the minimal in-process command interface the core
// proxy needs to register its one built-in command ("/server"). The full
// command registry and tab-complete suggestion engine are external
// collaborators per SPEC_FULL.md §1/§6 - real deployments are expected to
// plug in their own, richer implementation of this interface; this package
// only carries the shape and the one concrete example grounded on
// original_source/src/server/commands/mod.rs.
package command

import (
	"sort"
	"strings"
)

// Source is whoever invoked a command - kept minimal (just a way to send a
// reply) so this package has no dependency on the player/connection types.
type Source interface {
	SendReply(text string)
	Name() string
}

// Command is a single registered command.
type Command interface {
	// Names returns the literal(s) this command responds to (without the
	// leading slash), e.g. ["server", "srv"].
	Names() []string
	// Execute runs the command with the whitespace-separated argument tokens
	// that follow the command literal (nil when there are none).
	Execute(src Source, args []string)
}

// Registry is a flat map of command literal -> Command, the proxy's own
// minimal stand-in for the external engine described in SPEC_FULL.md §6.
type Registry struct {
	commands map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd under every name it declares.
func (r *Registry) Register(cmd Command) {
	for _, name := range cmd.Names() {
		r.commands[name] = cmd
	}
}

// Dispatch looks up and runs the command named by the first whitespace-
// separated token of line (without its leading slash). Returns false if no
// command is registered under that name, so the caller can fall back to
// forwarding the raw chat input to the backend instead.
func (r *Registry) Dispatch(src Source, line string) bool {
	name, args := splitCommand(line)
	cmd, ok := r.commands[name]
	if !ok {
		return false
	}
	cmd.Execute(src, args)
	return true
}

// Names returns every literal registered in r, sorted, for callers that need
// to advertise the full command set (the command-graph splice) rather than
// dispatch a single one.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest returns every registered literal starting with the given prefix
// (lower-cased before matching), sorted - this proxy's local answer to a tab-complete
// request for a bare command name, so the backend never needs to see one.
func (r *Registry) Suggest(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for name := range r.commands {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func splitCommand(line string) (name string, args []string) {
	fields := fieldsOf(line)
	if len(fields) == 0 {
		return "", nil
	}
	if len(fields) == 1 {
		return fields[0], nil
	}
	return fields[0], fields[1:]
}

func fieldsOf(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}
