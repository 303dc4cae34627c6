package forwarding

import (
	"context"

	"github.com/c1ydehhx/upflb/types"
)

// LogClient is a types.SwitchConfigClient that only logs entries.
// It backs the CLI's dry-run mode.
type LogClient struct {
	logger types.Logger
}

var _ types.SwitchConfigClient = (*LogClient)(nil)

// NewLogClient creates a dry-run switch client.
func NewLogClient(logger types.Logger) *LogClient {
	return &LogClient{logger: logger}
}

// AddEntry logs the entry.
func (c *LogClient) AddEntry(_ context.Context, entry types.TableEntry) error {
	c.log("TABLE_ADD", entry)
	return nil
}

// ModifyEntry logs the entry.
func (c *LogClient) ModifyEntry(_ context.Context, entry types.TableEntry) error {
	c.log("TABLE_MOD", entry)
	return nil
}

func (c *LogClient) log(op string, entry types.TableEntry) {
	c.logger.Info("dry-run table entry",
		"op", op,
		"table", entry.Table,
		"keys", entry.Keys,
		"action", entry.Action,
		"data", entry.Data,
	)
}
