package model

import (
	"fmt"
	"strings"
)

// StorageState defines the physical state a unit of product is kept in. Each
// state runs its own shelf-life clock.
type StorageState int

const (
	Ambient StorageState = iota
	Frozen
	Thawed
)

// AllStates lists every storage state in a stable order.
var AllStates = []StorageState{Ambient, Frozen, Thawed}

// String returns a human-readable representation of the storage state.
func (s StorageState) String() string {
	switch s {
	case Ambient:
		return "ambient"
	case Frozen:
		return "frozen"
	case Thawed:
		return "thawed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s StorageState) MarshalText() ([]byte, error) {
	if s < Ambient || s > Thawed {
		return nil, fmt.Errorf("invalid storage state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *StorageState) UnmarshalText(b []byte) error {
	st, err := ParseStorageState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseStorageState converts a name into a StorageState.
func ParseStorageState(v string) (StorageState, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ambient":
		return Ambient, nil
	case "frozen":
		return Frozen, nil
	case "thawed":
		return Thawed, nil
	default:
		return Ambient, fmt.Errorf("unknown storage state %q", v)
	}
}
