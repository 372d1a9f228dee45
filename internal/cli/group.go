package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/summary"
)

func newGroupCmd() *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
		Long: `A group is one outing: a place, a fixed number of participants (P1..Pn)
and the items they ordered. New groups become the current group.`,
	}

	createCmd := &cobra.Command{
		Use:   "create PLACE",
		Short: "Create a group and make it current",
		Args:  cobra.ExactArgs(1),
		RunE:  runGroupCreate,
	}
	createCmd.Flags().IntP("participants", "n", 2, "Number of participants (2-20)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List open groups",
		Args:  cobra.NoArgs,
		RunE:  runGroupList,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List finished groups, most recent first",
		Args:  cobra.NoArgs,
		RunE:  runGroupHistory,
	}

	showCmd := &cobra.Command{
		Use:   "show [GROUP_ID]",
		Short: "Show a group and what everyone owes",
		Long:  `Show a group's items and the share text. Defaults to the current group.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGroupShow,
	}
	showCmd.Flags().Float64("tip-percent", 0, "Add a tip as a percentage of the total")
	showCmd.Flags().Float64("tip-fixed", 0, "Add a fixed tip amount")
	showCmd.Flags().StringSlice("tip-for", nil, "Participants sharing the tip (default: everyone)")
	showCmd.Flags().BoolP("detailed", "d", false, "Show every participant's entries")
	showCmd.MarkFlagsMutuallyExclusive("tip-percent", "tip-fixed")

	finishCmd := &cobra.Command{
		Use:   "finish [GROUP_ID]",
		Short: "Finish a group, moving it to history",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGroupFinish,
	}

	selectCmd := &cobra.Command{
		Use:   "select GROUP_ID",
		Short: "Make a group the current group",
		Args:  cobra.ExactArgs(1),
		RunE:  runGroupSelect,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Unset the current group",
		Args:  cobra.NoArgs,
		RunE:  runGroupClear,
	}

	groupCmd.AddCommand(createCmd, listCmd, historyCmd, showCmd, finishCmd, selectCmd, clearCmd)
	return groupCmd
}

func runGroupCreate(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	count, _ := cmd.Flags().GetInt("participants")

	group, err := a.groups.CreateGroup(cmd.Context(), args[0], count)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) with %s\n",
		group.ID, group.PlaceName, strings.Join(group.Participants, ", "))
	return nil
}

func runGroupList(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	groups, err := a.groups.ListOpen(cmd.Context())
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No open groups.")
		return nil
	}
	printGroups(cmd.OutOrStdout(), groups, shareFormat(a.cfg.Share))
	return nil
}

func runGroupHistory(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	groups, err := a.groups.ListHistory(cmd.Context())
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No finished groups.")
		return nil
	}
	printGroups(cmd.OutOrStdout(), groups, shareFormat(a.cfg.Share))
	return nil
}

func runGroupShow(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	group, err := resolveGroup(cmd, args)
	if err != nil {
		return err
	}
	tip, err := tipFromFlags(cmd, group)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	format := shareFormat(a.cfg.Share)
	fmt.Fprintf(out, "%s [%s] %s\n\n", group.PlaceName, group.Status, group.ID)

	if len(group.Items) > 0 {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tITEM\tQTY\tUNIT\tTOTAL\tFOR")
		for _, it := range group.Items {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
				it.ID, it.Name, it.Quantity,
				format.Money(it.UnitPrice()), format.Money(it.TotalValue),
				strings.Join(it.Participants, ","))
		}
		tw.Flush()
		fmt.Fprintln(out)
	}

	detailed, _ := cmd.Flags().GetBool("detailed")
	if detailed {
		text, err := a.splits.Breakdown(cmd.Context(), group.ID, tip)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
	}

	text, err := a.splits.ShareText(cmd.Context(), group.ID, tip)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}

func runGroupFinish(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	group, err := resolveGroup(cmd, args)
	if err != nil {
		return err
	}
	finished, err := a.groups.FinishGroup(cmd.Context(), group.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Finished %s (%s)\n", finished.ID, finished.PlaceName)
	return nil
}

func runGroupSelect(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	group, err := a.groups.SelectGroup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Current group: %s (%s)\n", group.ID, group.PlaceName)
	return nil
}

func runGroupClear(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	if err := a.groups.ClearCurrent(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "No current group.")
	return nil
}

// resolveGroup loads the group named by args[0], or the current group.
func resolveGroup(cmd *cobra.Command, args []string) (*models.Group, error) {
	a := appFrom(cmd)
	if len(args) == 1 {
		return a.groups.GetGroup(cmd.Context(), args[0])
	}
	return a.groups.CurrentGroup(cmd.Context())
}

// tipFromFlags builds a TipSpec from --tip-percent / --tip-fixed and
// --tip-for. It returns nil when no tip was requested.
func tipFromFlags(cmd *cobra.Command, group *models.Group) (*models.TipSpec, error) {
	percent, _ := cmd.Flags().GetFloat64("tip-percent")
	fixed, _ := cmd.Flags().GetFloat64("tip-fixed")
	tipFor, _ := cmd.Flags().GetStringSlice("tip-for")

	var tip *models.TipSpec
	switch {
	case cmd.Flags().Changed("tip-percent"):
		tip = &models.TipSpec{Mode: models.TipPercentage, Amount: percent}
	case cmd.Flags().Changed("tip-fixed"):
		tip = &models.TipSpec{Mode: models.TipFixed, Amount: fixed}
	default:
		if len(tipFor) > 0 {
			return nil, fmt.Errorf("--tip-for needs --tip-percent or --tip-fixed")
		}
		return nil, nil
	}

	if len(tipFor) == 0 {
		tipFor = group.Participants
	}
	for _, p := range tipFor {
		if !group.HasParticipant(p) {
			return nil, fmt.Errorf("unknown participant %q in --tip-for", p)
		}
	}
	tip.Participants = tipFor
	return tip, nil
}

func printGroups(w io.Writer, groups []*models.Group, format summary.Format) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLACE\tPEOPLE\tITEMS\tTOTAL\tCREATED")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			g.ID, g.PlaceName, len(g.Participants), len(g.Items),
			format.Money(g.ItemsTotal()),
			time.UnixMilli(g.CreatedAt).Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
