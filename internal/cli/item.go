package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/tabsplit/internal/lifecycle"
)

func newItemCmd() *cobra.Command {
	itemCmd := &cobra.Command{
		Use:   "item",
		Short: "Add or remove items of an open group",
	}

	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an item shared by some participants",
		Long: `Add an item to a group (default: the current group). Give either the
total with --total or the unit price with --price; the total is then
price × quantity.`,
		Example: `  tabsplit item add "Pizza" --total 90 --for P1,P2,P3
  tabsplit item add "Beer" --price 7.5 --qty 4 --for P1`,
		Args: cobra.ExactArgs(1),
		RunE: runItemAdd,
	}
	addCmd.Flags().Float64("total", 0, "Total value of the item")
	addCmd.Flags().Float64("price", 0, "Unit price of the item")
	addCmd.Flags().IntP("qty", "q", 1, "Quantity")
	addCmd.Flags().StringSlice("for", nil, "Participants sharing the item, e.g. P1,P2")
	addCmd.Flags().StringP("group", "g", "", "Group ID (default: current group)")
	addCmd.MarkFlagsMutuallyExclusive("total", "price")
	addCmd.MarkFlagsOneRequired("total", "price")
	_ = addCmd.MarkFlagRequired("for")

	removeCmd := &cobra.Command{
		Use:   "remove ITEM_ID",
		Short: "Remove an item",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemRemove,
	}
	removeCmd.Flags().StringP("group", "g", "", "Group ID (default: current group)")

	itemCmd.AddCommand(addCmd, removeCmd)
	return itemCmd
}

func groupArgs(cmd *cobra.Command) []string {
	if id, _ := cmd.Flags().GetString("group"); id != "" {
		return []string{id}
	}
	return nil
}

func runItemAdd(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	group, err := resolveGroup(cmd, groupArgs(cmd))
	if err != nil {
		return err
	}

	total, _ := cmd.Flags().GetFloat64("total")
	price, _ := cmd.Flags().GetFloat64("price")
	qty, _ := cmd.Flags().GetInt("qty")
	participants, _ := cmd.Flags().GetStringSlice("for")

	updated, err := a.groups.AddItem(cmd.Context(), group.ID, lifecycle.ItemInput{
		Name:         args[0],
		Quantity:     qty,
		TotalValue:   total,
		UnitPrice:    price,
		Participants: participants,
	})
	if err != nil {
		return err
	}

	item := updated.Items[len(updated.Items)-1]
	format := shareFormat(a.cfg.Share)
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s × %d = %s (items total %s)\n",
		item.ID, item.Name, item.Quantity, format.Money(item.TotalValue), format.Money(updated.ItemsTotal()))
	return nil
}

func runItemRemove(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	group, err := resolveGroup(cmd, groupArgs(cmd))
	if err != nil {
		return err
	}

	updated, err := a.groups.RemoveItem(cmd.Context(), group.ID, args[0])
	if err != nil {
		return err
	}
	if len(updated.Items) == len(group.Items) {
		fmt.Fprintf(cmd.OutOrStdout(), "No item %s in %s\n", args[0], group.PlaceName)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (items total %s)\n", args[0], shareFormat(a.cfg.Share).Money(updated.ItemsTotal()))
	return nil
}
