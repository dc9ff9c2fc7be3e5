package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"voice-relations-go/internal/engine"
	"voice-relations-go/internal/report"
	"voice-relations-go/internal/store"
)

var (
	dbPath    string
	accountID string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "relctl",
		Short: "Operator tooling for the relationship-intelligence store",
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "relations.db", "database path")
	rootCmd.PersistentFlags().StringVar(&accountID, "account", "local", "account id")

	rootCmd.AddCommand(peopleCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func peopleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "people",
		Short: "List the account's contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.New(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			people, err := s.ListPeople(accountID)
			if err != nil {
				return err
			}
			for _, p := range people {
				last := "never"
				if p.Communication.LastContacted != nil {
					last = p.Communication.LastContacted.Format("2006-01-02")
				}
				fmt.Printf("%-24s %-12s %-10s last contacted %s (%d conversations)\n",
					p.Name, p.Relationship.Type, p.Communication.Frequency,
					last, p.Communication.TotalConversations)
			}
			return nil
		},
	}
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Print contacts overdue for a reconnect",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.New(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			people, err := s.ListPeople(accountID)
			if err != nil {
				return err
			}
			suggestions := engine.ComputeOverdue(people, time.Now())
			if len(suggestions) == 0 {
				fmt.Println("No overdue contacts.")
				return nil
			}
			for _, sg := range suggestions {
				fmt.Printf("[%s] %s\n", sg.Priority, sg.Reason)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export people, tasks and reminders to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.New(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			people, err := s.ListPeople(accountID)
			if err != nil {
				return err
			}
			tasks, err := s.ListObligations(accountID, "task", true)
			if err != nil {
				return err
			}
			reminders, err := s.ListObligations(accountID, "reminder", true)
			if err != nil {
				return err
			}
			if err := report.WriteWorkbook(out, people, tasks, reminders); err != nil {
				return err
			}
			fmt.Printf("Wrote %s: %d people, %d tasks, %d reminders\n",
				out, len(people), len(tasks), len(reminders))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "relations.xlsx", "output path")
	return cmd
}
