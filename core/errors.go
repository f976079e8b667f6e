package core

// RejectReason is the closed taxonomy of REJ wire reasons spec.md §7
// defines. Keeping it as a type (rather than letting callers build
// arbitrary strings) stops a handler from emitting a reason outside
// the documented taxonomy.
type RejectReason string

const (
	ReasonInvalidPayload RejectReason = "Invalid payload"
	ReasonNoSuchMotor    RejectReason = "No such motor"
	ReasonMotorOffline   RejectReason = "Motor Offline"
	ReasonMotorDisabled  RejectReason = "Motor Disabled"
	ReasonMotorQueueFull RejectReason = "Motor Queue Full"
)

func (r RejectReason) String() string { return string(r) }

// UnsupportedCommand formats the one REJ reason that isn't a fixed
// string: "Unsupported command: <method>::<property>".
func UnsupportedCommand(method, property string) string {
	return "Unsupported command: " + method + "::" + property
}
