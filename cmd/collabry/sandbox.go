package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/collabry/collabry-go/internal/sandbox"
)

var (
	sandboxAddr string
	sandboxSeed bool
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run the local marketplace stub backend",
	Long: `sandbox serves the chat and notification endpoints the client consumes,
backed by in-memory stores. Point the other commands at it with
--base-url http://localhost:8080.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := sandbox.NewServer(log)
		if sandboxSeed {
			roomID := srv.Seed()
			log.Info().Str("room", roomID).Msg("seeded demo conversation")
		}
		if err := srv.ListenAndServe(ctx, sandboxAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	sandboxCmd.Flags().StringVar(&sandboxAddr, "addr", ":8080", "listen address")
	sandboxCmd.Flags().BoolVar(&sandboxSeed, "seed", true, "preload a demo conversation and notifications")
	rootCmd.AddCommand(sandboxCmd)
}
