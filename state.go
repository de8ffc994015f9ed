package ble

// State is the controller state published by the transport.
type State int

const (
	StateUnknown State = iota
	StatePoweredOn
	StatePoweredOff
	StateUnauthorized
	StateUnsupported
	StateResetting
)

var stateNames = map[State]string{
	StateUnknown:      "unknown",
	StatePoweredOn:    "poweredOn",
	StatePoweredOff:   "poweredOff",
	StateUnauthorized: "unauthorized",
	StateUnsupported:  "unsupported",
	StateResetting:    "resetting",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
