package core

// DebugWriter is the platform hook for the device→host trace channel
// (the LOG frame payload text, spec.md §6). The default sink discards
// everything and nothing in cmd/firmware replaces it, so the tinygo
// build emits no debug text; on the host build a test or the
// simulation harness can substitute its own sink.
type DebugWriter func(string)

var (
	debugPrintln DebugWriter = func(string) {}
	debugEnabled bool

	// debugChan decouples DEBUG()-style call sites from the installed
	// DebugWriter, mirroring the original firmware's debug_write()
	// ring (firmware/lib/debug/debug.h): a full channel drops the
	// message rather than blocking the caller, since task bodies must
	// run to completion (spec.md §5).
	debugChan chan string
)

// SetDebugWriter installs the platform-specific sink for debug text.
func SetDebugWriter(w DebugWriter) { debugPrintln = w }

// SetDebugEnabled enables or disables DebugPrintln/DebugAsync output.
func SetDebugEnabled(enabled bool) { debugEnabled = enabled }

// IsDebugEnabled reports the current debug output state.
func IsDebugEnabled() bool { return debugEnabled }

// InitAsyncDebug starts the background worker that drains debugChan.
// Call once after SetDebugWriter, before any DebugAsync call.
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		debugPrintln(msg)
	}
}

// DebugPrintln writes msg through the installed sink immediately, if
// debugging is enabled.
func DebugPrintln(msg string) {
	if debugEnabled {
		debugPrintln(msg)
	}
}

// DebugAsync queues msg for the background worker. Never blocks: a
// full channel drops the message, since no task body may suspend.
func DebugAsync(msg string) {
	if !debugEnabled || debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}
