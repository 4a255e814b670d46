// Package jsruntime maps commands to JavaScript runtimes and describes how a
// memory ceiling is handed to each of them.
package jsruntime

import (
	"sort"
	"strings"

	"github.com/psantana5/frc/internal/frcerr"
)

// Kind identifies a JavaScript runtime
type Kind string

const (
	Node Kind = "node"
	Deno Kind = "deno"
	Bun  Kind = "bun"
)

// aliases maps a command base name to the runtime that executes it
var aliases = map[string]Kind{
	"node":     Node,
	"nodejs":   Node,
	"npm":      Node,
	"npx":      Node,
	"pnpm":     Node,
	"pnpx":     Node,
	"yarn":     Node,
	"corepack": Node,
	"deno":     Deno,
	"bun":      Bun,
	"bunx":     Bun,
}

// Kinds returns every known runtime
func Kinds() []Kind {
	return []Kind{Node, Deno, Bun}
}

// Aliases returns the commands recognized for kind, sorted
func Aliases(kind Kind) []string {
	var names []string
	for name, k := range aliases {
		if k == kind {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// commandName reduces a command path to its lowercase base name without a
// Windows executable suffix. Both separators are accepted on every OS.
func commandName(command string) string {
	name := command
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ToLower(name)
	for _, ext := range []string{".exe", ".cmd", ".bat"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// FromCommand detects the runtime from a command name or path.
// "/usr/local/bin/NPM.cmd" and `C:\nodejs\npm.cmd` resolve the same way as "npm".
func FromCommand(command string) (Kind, error) {
	if kind, ok := aliases[commandName(command)]; ok {
		return kind, nil
	}
	return "", frcerr.Newf(frcerr.KindUnknownRuntime, "detect runtime", command,
		"unknown runtime (use -r node|deno|bun)")
}

// ParseKind parses an explicit runtime name as given to -r
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case Node:
		return Node, nil
	case Deno:
		return Deno, nil
	case Bun:
		return Bun, nil
	}
	return "", frcerr.Newf(frcerr.KindUnknownRuntime, "parse runtime", name,
		"unknown runtime (expected node, deno or bun)")
}

// String returns the runtime name
func (k Kind) String() string {
	return string(k)
}

// DisplayName returns the human-readable runtime name
func (k Kind) DisplayName() string {
	switch k {
	case Node:
		return "Node.js"
	case Deno:
		return "Deno"
	case Bun:
		return "Bun"
	default:
		return string(k)
	}
}

// SupportsMemoryLimit reports whether a heap ceiling can be passed to the runtime.
// Bun runs on JavaScriptCore and sizes its heap itself.
func (k Kind) SupportsMemoryLimit() bool {
	return k == Node || k == Deno
}
