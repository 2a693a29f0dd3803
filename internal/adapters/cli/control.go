package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// controlOps maps subcommand names to a short description. Each maps 1:1
// onto a POST /api/control/<name> endpoint.
var controlOps = []struct {
	name  string
	short string
}{
	{"reload-config", "Reload character configuration without restarting"},
	{"restart", "Stop and start all schedulers"},
	{"clear-order-board", "Drop every order on the board"},
	{"clear-gear-state", "Recompute gear plans from scratch"},
}

// NewControlCommand creates the control command group
func NewControlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Send a control operation to the daemon",
	}
	for _, op := range controlOps {
		op := op
		cmd.AddCommand(&cobra.Command{
			Use:   op.name,
			Short: op.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				client := NewDaemonClient(daemonAddr)

				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()

				if err := client.Control(ctx, op.name); err != nil {
					return err
				}
				fmt.Printf("%s: ok\n", op.name)
				return nil
			},
		})
	}
	return cmd
}
