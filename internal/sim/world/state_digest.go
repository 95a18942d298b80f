package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
)

// stateDigest hashes the header and every entity's serialized record in pk
// order. Equal registries always produce equal digests.
func (w *World) stateDigest() (string, error) {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, w.turn)
	digestWriteI64(h, &tmp, w.width)
	digestWriteI64(h, &tmp, w.seq)

	for _, e := range w.Entities() {
		// encoding/json sorts map keys.
		b, err := json.Marshal(e.Record())
		if err != nil {
			return "", err
		}
		digestWriteI64(h, &tmp, int64(len(b)))
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	h.Write(tmp[:])
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
