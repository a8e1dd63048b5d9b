package catalog

import (
	"github.com/tpodg/backchannel/internal/task"
	"github.com/tpodg/backchannel/internal/task/provision"
)

// Builtins returns the built-in task specifications.
func Builtins() []task.Spec {
	return []task.Spec{
		provision.Spec(),
	}
}
