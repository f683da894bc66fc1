package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/supportdesk/internal/audit"
	"github.com/ziadkadry99/supportdesk/internal/dashboard"
	"github.com/ziadkadry99/supportdesk/internal/knowledge"
	"github.com/ziadkadry99/supportdesk/internal/pipeline"
	"github.com/ziadkadry99/supportdesk/internal/server"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

var (
	serverPort int
	serverSeed bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the triage HTTP server and dashboard",
	Long:  `Starts the supportdesk HTTP server with the ticket and knowledge base REST API, ticket processing and the triage dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, appOptions{pipeline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if serverSeed {
			n, err := a.kb.Seed(ctx)
			if err != nil {
				return err
			}
			slog.Info("demo knowledge loaded", "chunks", n)
		}

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		srv := server.New(server.Config{
			Port:           port,
			AllowAll:       a.cfg.Server.AllowAllOrigins,
			RequestTimeout: a.processTimeout(),
		}, a.tickets, a.kb)

		registerAllRoutes(srv, a)

		go func() {
			<-ctx.Done()
			slog.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("server shutdown", "error", err)
			}
		}()

		slog.Info("supportdesk server starting",
			"version", Version,
			"port", port,
			"provider", a.cfg.Provider,
			"model", a.cfg.Model,
			"ticket_store", a.cfg.TicketStore,
			"kb_chunks", a.kb.Count(),
		)

		err = srv.Start()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}

		if perr := a.index.Persist(context.Background(), a.vectorDir()); perr != nil {
			slog.Warn("persisting knowledge index", "dir", a.vectorDir(), "error", perr)
		}
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	},
}

// registerAllRoutes wires up all feature routes.
func registerAllRoutes(srv *server.Server, a *app) {
	r := srv.Router()

	// Tickets
	tickets.RegisterRoutes(r, a.tickets)

	// Processing
	pipeline.RegisterRoutes(r, a.processor)

	// Activity history
	audit.RegisterRoutes(r, a.history, a.tickets)

	// Knowledge base
	knowledge.RegisterRoutes(r, a.kb)

	// Dashboard
	dash := dashboard.New(a.tickets, a.kb, a.processor, a.cfg.Tickets,
		dashboard.WithProcessTimeout(a.processTimeout()),
	)
	dash.RegisterRoutes(r)
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	serverCmd.Flags().BoolVar(&serverSeed, "seed", false, "Load the demo FAQ and runbook entries into the knowledge base")
	rootCmd.AddCommand(serverCmd)
}
