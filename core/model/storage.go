package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStorage is returned when a Storage value is not one of the known
// variants.
var ErrUnknownStorage = errors.New("unknown storage capability")

// Storage is the storage capability of a node. It is a closed set of
// variants: AmbientStorage, FrozenStorage and DualStorage.
type Storage interface {
	storage()
}

// AmbientStorage holds goods at ambient temperature. Thawed goods are kept
// alongside ambient stock.
type AmbientStorage struct{}

// FrozenStorage only holds frozen goods.
type FrozenStorage struct{}

// DualStorage holds ambient and frozen goods and can freeze or thaw on site.
type DualStorage struct{}

func (AmbientStorage) storage() {}
func (FrozenStorage) storage()  {}
func (DualStorage) storage()    {}

// States returns the storage states a capability can hold.
func States(s Storage) ([]StorageState, error) {
	switch s.(type) {
	case AmbientStorage:
		return []StorageState{Ambient, Thawed}, nil
	case FrozenStorage:
		return []StorageState{Frozen}, nil
	case DualStorage:
		return []StorageState{Ambient, Frozen, Thawed}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownStorage, s)
	}
}

// Supports reports whether the capability can hold goods in state st.
func Supports(s Storage, st StorageState) bool {
	states, err := States(s)
	if err != nil {
		return false
	}
	for _, v := range states {
		if v == st {
			return true
		}
	}
	return false
}

// StorageName returns the configuration name of a capability.
func StorageName(s Storage) string {
	switch s.(type) {
	case AmbientStorage:
		return "ambient"
	case FrozenStorage:
		return "frozen"
	case DualStorage:
		return "both"
	default:
		return "unknown"
	}
}

// ParseStorage converts "ambient", "frozen" or "both" into a Storage variant.
func ParseStorage(v string) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ambient":
		return AmbientStorage{}, nil
	case "frozen":
		return FrozenStorage{}, nil
	case "both", "dual":
		return DualStorage{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, v)
	}
}
