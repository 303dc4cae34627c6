package publisher

import (
	"strings"
	"time"

	"github.com/c1ydehhx/upflb/types"
)

// Record is the JSON value stored for one client.
type Record struct {
	// Version increases by one with every pass that changed the binding set.
	Version int64 `json:"version"`

	Client     string          `json:"client"`
	TEID       uint32          `json:"teid"`
	Gateway    types.GatewayID `json:"gateway"`
	DemandMbps float64         `json:"demandMbps"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// keyToken makes an address usable as a KV key token. IPv6 colons are not
// valid in NATS subjects.
func keyToken(addr string) string {
	return strings.ReplaceAll(addr, ":", "-")
}
