package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/supportdesk/internal/audit"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Create and inspect support tickets",
}

var ticketCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new ticket",
	Args:  cobra.NoArgs,
	RunE:  runTicketCreate,
}

var ticketGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a ticket and its activity history",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketGet,
}

var ticketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent tickets, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTicketList,
}

var ticketFields tickets.Fields

func init() {
	f := ticketCreateCmd.Flags()
	f.StringVar(&ticketFields.CustomerName, "name", "", "customer name (required)")
	f.StringVar(&ticketFields.CustomerID, "customer-id", "", "existing customer id")
	f.StringVar(&ticketFields.ProductPurchased, "product", "", "product purchased")
	f.StringVar(&ticketFields.TicketType, "type", "", "ticket type")
	f.StringVar(&ticketFields.Subject, "subject", "", "subject line")
	f.StringVar(&ticketFields.Description, "description", "", "problem description")
	f.StringVar(&ticketFields.Priority, "priority", "", "priority")
	f.StringVar(&ticketFields.Channel, "channel", "", "channel the ticket arrived through")
	_ = ticketCreateCmd.MarkFlagRequired("name")

	ticketListCmd.Flags().Int("limit", tickets.DefaultListLimit, "maximum number of tickets")

	ticketCmd.AddCommand(ticketCreateCmd, ticketGetCmd, ticketListCmd)
	rootCmd.AddCommand(ticketCmd)
}

func runTicketCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.tickets.Create(ctx, ticketFields)
	if err != nil {
		return err
	}

	fmt.Printf("Created ticket %s (SLA %s)\n", t.ID, t.SLA)
	if len(t.Tags) > 0 {
		fmt.Printf("Tags: %v\n", t.Tags)
	}
	return nil
}

func runTicketGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.tickets.Get(ctx, args[0])
	if err != nil {
		return err
	}
	history, err := a.history.ForTicket(ctx, t.ID, audit.DefaultLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if history == nil {
		history = []audit.Entry{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Ticket  *tickets.Ticket `json:"ticket"`
		History []audit.Entry   `json:"history"`
	}{t, history})
}

func runTicketList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.tickets.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No tickets yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tCUSTOMER\tPRIORITY\tSUBJECT")
	for _, t := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.CreatedAt.Format("2006-01-02 15:04"), t.CustomerName, t.Priority, truncate(t.Subject, 60))
	}
	return w.Flush()
}
