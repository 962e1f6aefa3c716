package rx

const (
	signalNone SignalType = iota
	// SignalComplete indicated that subscriber was completed.
	SignalComplete
	// SignalError indicates that subscriber has some faults.
	SignalError
	// SignalCancel indicates that subscriber was cancelled.
	SignalCancel
)

var signalTypeNames = map[SignalType]string{
	SignalComplete: "COMPLETE",
	SignalError:    "ERROR",
	SignalCancel:   "CANCEL",
}

// SignalType is the kind of signal that ended a subscription.
type SignalType int32

func (s SignalType) String() string {
	if name, ok := signalTypeNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}
