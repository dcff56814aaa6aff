package pgingest

import "context"

// Approver handles confirmation of destructive operations such as
// truncating a target table.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type the table name for confirmation
type Approver interface {
	// RequestApproval asks whether every row of table may be deleted.
	// Returns true if approved, false if denied.
	RequestApproval(ctx context.Context, table string) (bool, error)
}
