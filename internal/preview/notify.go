package preview

import "fmt"

// CompileFailedMessage is shown to the user when a compile fails.
const CompileFailedMessage = "PDF compilation failed. Check your LaTeX syntax."

// NotificationKind identifies what a notification reports.
type NotificationKind int

const (
	// CompileFailed reports a failed compile. The previous artifact stays
	// current.
	CompileFailed NotificationKind = iota
	// LintFailed reports a failed lint pass. Published diagnostics are kept.
	LintFailed
)

// String returns the kind name.
func (k NotificationKind) String() string {
	switch k {
	case CompileFailed:
		return "compile_failed"
	case LintFailed:
		return "lint_failed"
	default:
		return fmt.Sprintf("NotificationKind(%d)", int(k))
	}
}

// Notification is a user-visible report of a recoverable failure.
type Notification struct {
	Kind    NotificationKind
	Seq     uint64
	Message string
	Err     error
}

// Notifier receives notifications. Notify is called from the goroutine
// that completed the submission and must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// MultiNotifier fans notifications out to several notifiers in order.
// Nil entries are skipped.
func MultiNotifier(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(n Notification) {
		for _, nt := range notifiers {
			if nt != nil {
				nt.Notify(n)
			}
		}
	})
}
