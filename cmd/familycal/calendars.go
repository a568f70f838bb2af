package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List the calendars on the configured CalDAV server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.caldav.IsConfigured() {
			return errors.New("CALDAV_URL, CALDAV_USERNAME and CALDAV_PASSWORD must be set")
		}

		cals, err := a.caldav.DiscoverCalendars(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPATH")
		for _, c := range cals {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.DisplayName, c.URL)
		}
		return tw.Flush()
	},
}
