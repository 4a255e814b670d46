package supervisor

import (
	"fmt"
	"syscall"
)

// ExitReason describes why a child terminated
type ExitReason string

const (
	ExitReasonSuccess ExitReason = "success" // Exit code 0
	ExitReasonError   ExitReason = "error"   // Exit code != 0
	ExitReasonSignal  ExitReason = "signal"  // Killed by signal
	ExitReasonOOM     ExitReason = "oom"     // Heap exhaustion found in stderr
)

// signalExitBase is added to the signal number, as shells do
const signalExitBase = 128

// determineExit maps a wait status to the code frc exits with, the signal
// name if any, and the reason before OOM classification.
func determineExit(status syscall.WaitStatus) (code int, signal string, reason ExitReason) {
	if status.Signaled() {
		sig := status.Signal()
		return signalExitBase + int(sig), SignalName(sig), ExitReasonSignal
	}

	code = status.ExitStatus()
	if code == 0 {
		return 0, "", ExitReasonSuccess
	}
	return code, "", ExitReasonError
}

// SignalName returns the signal name for a signal number
func SignalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGHUP:
		return "SIGHUP"
	case syscall.SIGQUIT:
		return "SIGQUIT"
	case syscall.SIGABRT:
		return "SIGABRT"
	case syscall.SIGSEGV:
		return "SIGSEGV"
	case syscall.SIGBUS:
		return "SIGBUS"
	case syscall.SIGILL:
		return "SIGILL"
	case syscall.SIGTRAP:
		return "SIGTRAP"
	case syscall.SIGPIPE:
		return "SIGPIPE"
	default:
		return fmt.Sprintf("SIG%d", int(sig))
	}
}
