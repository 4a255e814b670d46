package jsruntime

import (
	"strconv"
	"strings"

	"github.com/psantana5/frc/internal/frcerr"
)

const (
	nodeOptionsEnv   = "NODE_OPTIONS"
	maxOldSpaceFlag  = "--max-old-space-size"
	maxOldSpaceAlias = "--max_old_space_size"
	v8FlagsFlag      = "--v8-flags"
)

// denoSubcommands take the heap flags right after the subcommand name
var denoSubcommands = map[string]bool{
	"run":     true,
	"test":    true,
	"task":    true,
	"eval":    true,
	"serve":   true,
	"bench":   true,
	"repl":    true,
	"compile": true,
	"install": true,
	"jupyter": true,
}

// Invocation describes how a child process is launched
type Invocation struct {
	Command string
	Args    []string
	Env     []string
}

// Clone returns a deep copy so callers can modify it freely
func (inv Invocation) Clone() Invocation {
	out := Invocation{Command: inv.Command}
	if inv.Args != nil {
		out.Args = append([]string(nil), inv.Args...)
	}
	if inv.Env != nil {
		out.Env = append([]string(nil), inv.Env...)
	}
	return out
}

// ApplyMemoryLimit returns a copy of inv carrying the heap ceiling in the
// form the runtime understands. inv itself is never modified.
// For Bun, and for Deno when the command is not the deno binary itself, the
// copy is unchanged and a KindUnsupportedRuntime error is returned.
func (k Kind) ApplyMemoryLimit(inv Invocation, memoryMB int) (Invocation, error) {
	out := inv.Clone()
	if memoryMB <= 0 {
		return out, nil
	}

	switch k {
	case Node:
		current, rest := extractEnv(out.Env, nodeOptionsEnv)
		out.Env = append(rest, nodeOptionsEnv+"="+MergeNodeOptions(current, memoryMB))
		return out, nil

	case Deno:
		if commandName(inv.Command) != string(Deno) {
			return out, frcerr.Newf(frcerr.KindUnsupportedRuntime, "apply memory limit", inv.Command,
				"not the deno binary, --v8-flags not added")
		}
		out.Args = insertDenoFlags(out.Args, memoryMB)
		return out, nil

	case Bun:
		return out, frcerr.Newf(frcerr.KindUnsupportedRuntime, "apply memory limit", inv.Command,
			"bun manages its heap automatically, ignoring %d MB", memoryMB)
	}

	return out, frcerr.Newf(frcerr.KindUnknownRuntime, "apply memory limit", inv.Command,
		"unknown runtime %q", string(k))
}

// MergeNodeOptions adds the heap ceiling to an existing NODE_OPTIONS value.
// Other options are kept in order; a previous heap size flag is replaced.
func MergeNodeOptions(existing string, memoryMB int) string {
	fields := strings.Fields(existing)
	kept := make([]string, 0, len(fields)+1)

	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f == maxOldSpaceFlag || f == maxOldSpaceAlias {
			i++ // value is the next token
			continue
		}
		if strings.HasPrefix(f, maxOldSpaceFlag+"=") || strings.HasPrefix(f, maxOldSpaceAlias+"=") {
			continue
		}
		kept = append(kept, f)
	}

	kept = append(kept, heapFlag(memoryMB))
	return strings.Join(kept, " ")
}

func heapFlag(memoryMB int) string {
	return maxOldSpaceFlag + "=" + strconv.Itoa(memoryMB)
}

// insertDenoFlags places --v8-flags <heap> after a leading Deno subcommand,
// or at the front. Both positions precede any "--" separator.
func insertDenoFlags(args []string, memoryMB int) []string {
	pos := 0
	if len(args) > 0 && denoSubcommands[args[0]] {
		pos = 1
	}

	out := make([]string, 0, len(args)+2)
	out = append(out, args[:pos]...)
	out = append(out, v8FlagsFlag, heapFlag(memoryMB))
	out = append(out, args[pos:]...)
	return out
}

// extractEnv removes every entry for key and returns the last value seen
func extractEnv(env []string, key string) (string, []string) {
	var value string
	rest := make([]string, 0, len(env)+1)
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			value = kv[len(prefix):]
			continue
		}
		rest = append(rest, kv)
	}
	return value, rest
}

// LookupEnv returns the value of key in an environment slice
func LookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):], true
		}
	}
	return "", false
}
