package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tazhate/familycal/internal/calendar"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Print today's summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.events.Today(cmd.Context())
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

func printSummary(w io.Writer, s calendar.Summary) {
	fmt.Fprintf(w, "%s\n", calendar.DisplayDate(s.Date))
	fmt.Fprintf(w, "You have %d event(s) today.\n", s.Count())
	if s.Count() == 0 {
		return
	}
	for _, e := range s.Events {
		fmt.Fprintf(w, "  %s  %s\n", e.EventTime, e.Title)
	}
	if s.Next != nil {
		fmt.Fprintf(w, "Next: %s at %s\n", s.Next.Title, s.Next.EventTime)
	} else {
		fmt.Fprintln(w, "All events for today are done!")
	}
}
