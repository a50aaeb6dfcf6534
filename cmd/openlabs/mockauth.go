package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/openlabs-client/internal/config"
	"github.com/jrsteele09/openlabs-client/server"
	"github.com/jrsteele09/openlabs-client/users"
	"github.com/spf13/cobra"
)

const authPrefix = "/api/v1/auth"

var (
	mockAddr    string
	mockSeed    users.SignUpRequest
	mockBalance int
)

var mockAuthCmd = &cobra.Command{
	Use:   "mock-auth",
	Short: "Serve a local stand-in for the auth service",
	Long: `Serve the auth service contract under /api/v1/auth for local
development. Accounts live in memory and vanish on exit.

Use --seed-username and friends to create an account on start.`,
	Args: cobra.NoArgs,
	RunE: runMockAuth,
}

func init() {
	mockAuthCmd.Flags().StringVar(&mockAddr, "addr", ":8080", "listen address")
	mockAuthCmd.Flags().StringVar(&mockSeed.Username, "seed-username", "", "username of an account created on start")
	mockAuthCmd.Flags().StringVar(&mockSeed.Email, "seed-email", "", "email of the seeded account")
	mockAuthCmd.Flags().StringVar(&mockSeed.Password, "seed-password", "", "password of the seeded account")
	mockAuthCmd.Flags().StringVar(&mockSeed.FirstName, "seed-first-name", "Demo", "first name of the seeded account")
	mockAuthCmd.Flags().StringVar(&mockSeed.LastName, "seed-last-name", "User", "last name of the seeded account")
	mockAuthCmd.Flags().IntVar(&mockBalance, "seed-balance", 5, "points balance of the seeded account")
	rootCmd.AddCommand(mockAuthCmd)
}

func runMockAuth(cmd *cobra.Command, args []string) error {
	c := config.New()
	displayAppname(c.GetAppName())
	log := newLogger(c.GetLogLevel()).With().Str("component", "mock-auth").Logger()

	srv := server.New(server.WithLogger(log), server.WithEnv(c.GetEnv()))
	if mockSeed.Username != "" {
		if err := mockSeed.RequireFields(); err != nil {
			return fmt.Errorf("seed account: %w", err)
		}
		if _, err := srv.Seed(mockSeed, mockBalance); err != nil {
			return fmt.Errorf("seed account: %w", err)
		}
		log.Info().Str("username", mockSeed.Username).Int("balance", mockBalance).Msg("seeded account")
	}

	mux := http.NewServeMux()
	mux.Handle(authPrefix+"/", http.StripPrefix(authPrefix, srv))
	httpServer := &http.Server{Addr: mockAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", mockAddr).Str("prefix", authPrefix).Msg("auth service listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("httpServer.ListenAndServe %w", err)
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpServer.Shutdown: %w", err)
	}
	return nil
}
