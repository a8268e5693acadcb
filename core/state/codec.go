package state

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Key derives a fixed-width storage key from a namespace prefix and parts.
func Key(prefix string, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += 1 + len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, ':')
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

// GetRLP decodes the value stored at key into out. The boolean reports whether
// the key existed.
func GetRLP(kv KV, key []byte, out interface{}) (bool, error) {
	data, err := kv.Get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// PutRLP encodes v and stores it at key.
func PutRLP(kv KV, key []byte, v interface{}) error {
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return kv.Put(key, encoded)
}
