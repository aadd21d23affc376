package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"wai/internal/config"
	"wai/internal/item"
	"wai/internal/logging"
	"wai/internal/queue"
	"wai/internal/store"
)

func newQueueCommand(configFlag *string) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the persisted stage queues",
	}

	queueCmd.AddCommand(newQueueStatusCommand(configFlag))
	queueCmd.AddCommand(newQueueListCommand(configFlag))
	queueCmd.AddCommand(newQueueHistoryCommand(configFlag))

	return queueCmd
}

func openStore(configFlag *string) (*store.Store, error) {
	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	st, err := store.New(cfg.Paths.DataDir, logging.NewNop())
	if err != nil {
		return nil, err
	}
	return st, nil
}

func newQueueStatusCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue depth and in-flight item per stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(configFlag)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(item.AllStages()))
			for _, stage := range item.AllStages() {
				q, err := queue.New(st, stage, false)
				if err != nil {
					return err
				}
				current, err := st.LoadCurrent(stage)
				if err != nil {
					return err
				}
				inFlight := "-"
				if current != nil {
					inFlight = fmt.Sprintf("%s :: %s", current.Creator, current.Title)
				}
				rows = append(rows, []string{
					string(stage),
					strconv.Itoa(q.Len()),
					inFlight,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Stage", "Queued", "In flight"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newQueueListCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <stage>",
		Short: "List the queued items for a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage := item.Stage(strings.ToLower(strings.TrimSpace(args[0])))
			if !stage.Valid() {
				return fmt.Errorf("unknown stage %q (want decision, aging, or download)", args[0])
			}

			st, err := openStore(configFlag)
			if err != nil {
				return err
			}
			q, err := queue.New(st, stage, false)
			if err != nil {
				return err
			}

			items := q.Snapshot()
			if len(items) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Queue %s is empty\n", stage)
				return nil
			}

			rows := make([][]string, 0, len(items))
			for i, it := range items {
				ripeness := "-"
				if it.Aging != nil {
					ripeness = strconv.Itoa(it.Aging.Ripeness)
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					it.Creator,
					it.Title,
					it.Datecode,
					ripeness,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Creator", "Title", "Datecode", "Ripeness"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newQueueHistoryCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history <archive>",
		Short: "List the items recorded in a history archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSuffix(strings.TrimSpace(args[0]), ".json")
			outcome, ok := item.ParseOutcome(name)
			if !ok {
				known := make([]string, 0, len(item.AllOutcomes()))
				for _, o := range item.AllOutcomes() {
					known = append(known, string(o))
				}
				return fmt.Errorf("unknown archive %q (want one of %s)", args[0], strings.Join(known, ", "))
			}

			st, err := openStore(configFlag)
			if err != nil {
				return err
			}
			items, err := st.ArchiveLoad(outcome)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Archive %s is empty\n", outcome)
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{
					it.Creator,
					it.Title,
					it.Datecode,
					it.URL,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Creator", "Title", "Datecode", "URL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
