package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"treepilot/family"
	"treepilot/source"
)

func newPeopleCommand(a *app) *cobra.Command {
	var youngest bool
	cmd := &cobra.Command{
		Use:     "people",
		Aliases: []string{"individuals"},
		Short:   "List the people in the family data",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := a.provider(nil)
			if err != nil {
				return err
			}
			var list []*family.Record
			if youngest {
				list, err = p.Youngest(cmd.Context())
			} else {
				list, err = p.Individuals(cmd.Context())
			}
			if err != nil {
				return err
			}
			printPeople(cmd, list)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&youngest, "youngest", "y", false, "Only people without children")
	return cmd
}

func printPeople(cmd *cobra.Command, list []*family.Record) {
	rows := make([][]string, 0, len(list))
	for _, r := range list {
		rows = append(rows, []string{r.ID, r.Name(), family.Lifespan(r.BirthYear, r.DeathYear), r.BirthPlace})
	}
	table(cmd.OutOrStdout(), []string{"ID", "NAME", "LIFESPAN", "BORN IN"}, rows)
	fmt.Fprintln(cmd.OutOrStdout(), Subtle.Sprint(strconv.Itoa(len(list))+" people"))
}

func newDepthCommand(a *app) *cobra.Command {
	var mode string
	var fetch int
	cmd := &cobra.Command{
		Use:   "depth <person-id>",
		Short: "Show how many generations are available around a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := source.ParseKind(mode)
			if err != nil {
				return err
			}
			p, _, err := a.provider(nil)
			if err != nil {
				return err
			}
			q := source.TreeQuery{Kind: kind, Ancestors: fetch, Descendants: fetch}.Normalize()
			rec, err := p.Tree(cmd.Context(), args[0], q)
			if err != nil {
				return err
			}

			ext := family.Measure(rec)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", Brand.Sprint(rec.Name()), Subtle.Sprint(rec.ID))
			var rows [][]string
			if kind.Mode() == family.ModeSingle {
				ctl := family.DepthControl{Available: ext.Children, FetchLimit: q.Depth()}
				rows = append(rows, depthRow(string(kind), ctl))
			} else {
				rows = append(rows,
					depthRow("ancestors", family.DepthControl{Available: ext.Ancestors, FetchLimit: q.Ancestors}),
					depthRow("descendants", family.DepthControl{Available: ext.Descendants, FetchLimit: q.Descendants}),
				)
			}
			table(out, []string{"DIRECTION", "AVAILABLE", "SELECTABLE", "MORE ON SERVER"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "bidirectional", "Tree kind: bidirectional, ancestors, descendants")
	cmd.Flags().IntVar(&fetch, "fetch", source.MaxQueryDepth, "Generations to fetch")
	return cmd
}

func depthRow(name string, ctl family.DepthControl) []string {
	more := Subtle.Sprint("no")
	if ctl.NeedsFetch(ctl.Max()) {
		more = Info.Sprint("maybe")
	}
	return []string{name, strconv.Itoa(ctl.Available), strconv.Itoa(ctl.Max()), more}
}
