package settlement

import (
	"crypto/sha256"
	"encoding/binary"
)

func sha256Sum(b []byte) [32]byte {
	return sha256.Sum256(b)
}

func putU64(dst []byte, v uint64) {
	binary.LittleEndian.PutUint64(dst, v)
}
