// Package hash computes stable digests of binding sets.
package hash

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"github.com/c1ydehhx/upflb/types"
)

// Fingerprint returns a 64-bit digest of the bindings in clients.
//
// The digest covers client address, TEID and gateway of every bound client.
// Unbound clients and demand values are ignored, and the result does not
// depend on the order of clients. An empty binding set hashes to the seed
// digest of no input.
//
// Parameters:
//   - clients: Clients whose bindings are hashed
//   - seed: Hash seed (0 for the unseeded xxh3 digest)
//
// Returns:
//   - uint64: Digest of the binding set
func Fingerprint(clients []types.Client, seed uint64) uint64 {
	h := xxh3.NewSeed(seed)

	var buf [4]byte
	for _, b := range types.Bindings(clients) {
		addr := b.Client.As16()
		_, _ = h.Write(addr[:])

		binary.LittleEndian.PutUint32(buf[:], b.TEID)
		_, _ = h.Write(buf[:])

		_, _ = h.WriteString(string(b.Gateway))
		// Separator so that ("ab","c") and ("a","bc") gateway sequences differ.
		_, _ = h.Write([]byte{0})
	}

	return h.Sum64()
}
