package policy

import (
	"fmt"
	"strings"

	"github.com/c1ydehhx/upflb/types"
)

// Names lists the built-in policy names accepted by New.
func Names() []string {
	return []string{NameSwap, NameSticky}
}

// New builds a built-in policy by name.
//
// Names are matched case-insensitively after trimming spaces.
//
// Returns:
//   - types.AssignmentPolicy: The policy
//   - error: ErrUnknownPolicy if name is not a built-in policy
func New(name string, opts ...Option) (types.AssignmentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameSwap:
		return NewSwap(opts...), nil
	case NameSticky:
		return NewSticky(opts...), nil
	default:
		return nil, fmt.Errorf("%q (want one of %s): %w", name, strings.Join(Names(), ", "), ErrUnknownPolicy)
	}
}
