package policy

import (
	"fmt"

	"github.com/c1ydehhx/upflb/types"
)

// validateDemand rejects a pass if any client has no usable demand.
func validateDemand(clients []types.Client) error {
	for _, c := range clients {
		if !c.Demand.Valid() {
			return fmt.Errorf("client %s (mbps=%v): %w", c.Key(), c.Demand.Mbps, types.ErrUnresolvedDemand)
		}
	}

	return nil
}
