package state

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// StateVersion identifies the expected on-disk layout of marketplace state.
// Increment it whenever stored records change incompatibly.
const StateVersion uint32 = 1

var (
	stateVersionKey = []byte("state/version")
	// ErrStateVersionMismatch indicates the stored schema version does not
	// match the version supported by the current binary.
	ErrStateVersionMismatch = errors.New("state: schema version mismatch")
)

// SetStateVersion records version in kv.
func SetStateVersion(kv KV, version uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, version)
	return kv.Put(stateVersionKey, buf)
}

// ReadStateVersion returns the stored schema version and whether one was
// present.
func ReadStateVersion(kv KV) (uint32, bool, error) {
	raw, err := kv.Get(stateVersionKey)
	if err != nil {
		return 0, false, err
	}
	if len(raw) == 0 {
		return 0, false, nil
	}
	if len(raw) != 4 {
		return 0, false, fmt.Errorf("state: malformed schema version (%d bytes)", len(raw))
	}
	return binary.BigEndian.Uint32(raw), true, nil
}

// EnsureStateVersion verifies that the stored schema version, when present,
// matches the version supported by this binary.
func EnsureStateVersion(kv KV) error {
	version, ok, err := ReadStateVersion(kv)
	if err != nil {
		return err
	}
	if !ok || version == StateVersion {
		return nil
	}
	return fmt.Errorf("%w: on-disk=%d expected=%d", ErrStateVersionMismatch, version, StateVersion)
}
