package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon runtime status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewDaemonClient(daemonAddr)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			status, err := client.Status(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("State:      %s\n", status.State)
			if status.Operation != nil {
				started := time.UnixMilli(status.Operation.StartedAtMs).Format(time.RFC3339)
				fmt.Printf("Operation:  %s (since %s)\n", status.Operation.Name, started)
			}
			chars := append([]string(nil), status.Characters...)
			sort.Strings(chars)
			fmt.Printf("Characters: %s\n", strings.Join(chars, ", "))
			if status.UpdatedAtMs > 0 {
				fmt.Printf("Updated:    %s\n", time.UnixMilli(status.UpdatedAtMs).Format(time.RFC3339))
			}
			return nil
		},
	}
}

// NewOrdersCommand creates the orders command
func NewOrdersCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders on the daemon's order board",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewDaemonClient(daemonAddr)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			snap, err := client.Orders(ctx)
			if err != nil {
				return err
			}

			shown := 0
			for _, o := range snap.Orders {
				if !all && o.Status == orders.StatusFulfilled {
					continue
				}
				claimant := "-"
				if o.Claim != nil {
					claimant = o.Claim.CharName
				}
				fmt.Printf("%-10s %-24s %5d/%-5d %-8s claim=%s requesters=%s\n",
					o.Status, o.ItemCode, o.RemainingQty, o.RequestedQty,
					o.SourceType, claimant, strings.Join(o.Requesters, ","))
				shown++
			}
			if shown == 0 {
				fmt.Println("no orders")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include fulfilled orders")
	return cmd
}
