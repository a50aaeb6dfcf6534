package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jrsteele09/openlabs-client/users"
	"github.com/spf13/cobra"
)

var (
	signInPassword string

	signUpForm users.SignUpRequest
)

var signInCmd = &cobra.Command{
	Use:   "signin <username-or-email>",
	Short: "Sign in and store the session",
	Args:  cobra.ExactArgs(1),
	RunE:  run(runSignIn),
}

var signUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	RunE:  run(runSignUp),
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Revoke the session and clear it locally",
	RunE:  run(runSignOut),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Show the signed-in user as stored in the session file.

With --fetch the profile is reloaded from the auth service first.`,
	RunE: run(runWhoami),
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new access token",
	RunE:  run(runRefresh),
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the user whenever the session changes",
	Long: `Keep the session fresh and print the user each time it changes,
including sign-ins and sign-outs made by other openlabs processes.

Stops on Ctrl-C.`,
	RunE: run(runWatch),
}

func init() {
	signInCmd.Flags().StringVarP(&signInPassword, "password", "p", "", "password (prompted when omitted)")

	signUpCmd.Flags().StringVar(&signUpForm.FirstName, "first-name", "", "first name")
	signUpCmd.Flags().StringVar(&signUpForm.LastName, "last-name", "", "last name")
	signUpCmd.Flags().StringVar(&signUpForm.Username, "username", "", "username")
	signUpCmd.Flags().StringVar(&signUpForm.Email, "email", "", "email address")
	signUpCmd.Flags().StringVarP(&signUpForm.Password, "password", "p", "", "password (prompted when omitted)")

	whoamiCmd.Flags().Bool("fetch", false, "reload the profile from the auth service")

	rootCmd.AddCommand(signInCmd, signUpCmd, signOutCmd, whoamiCmd, refreshCmd, watchCmd)
}

func runSignIn(cmd *cobra.Command, args []string, a *app) error {
	password, err := passwordOrPrompt(cmd, signInPassword)
	if err != nil {
		return err
	}
	res, err := a.manager.SignIn(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}
	printf(cmd, "Signed in as %s (%s), balance %d\n", res.User.Username, res.User.FullName(), res.User.Balance)
	return nil
}

func runSignUp(cmd *cobra.Command, args []string, a *app) error {
	password, err := passwordOrPrompt(cmd, signUpForm.Password)
	if err != nil {
		return err
	}
	form := signUpForm
	form.Password = password
	if errs := users.ValidateSignUp(form); !errs.Valid() {
		for _, field := range []string{"firstName", "lastName", "username", "email", "password"} {
			if msg, ok := errs[field]; ok {
				return errors.New(msg)
			}
		}
	}
	res, err := a.manager.SignUp(cmd.Context(), form)
	if err != nil {
		return err
	}
	printf(cmd, "Welcome, %s. You are signed in as %s.\n", res.User.FirstName, res.User.Username)
	return nil
}

func runSignOut(cmd *cobra.Command, args []string, a *app) error {
	a.manager.SignOut(cmd.Context())
	printf(cmd, "Signed out\n")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string, a *app) error {
	if fetch, _ := cmd.Flags().GetBool("fetch"); fetch && a.manager.IsAuthenticated() {
		if _, err := a.manager.GetUserProfile(cmd.Context()); err != nil {
			if a.manager.HandleAuthError(cmd.Context(), err) {
				return fmt.Errorf("session expired, sign in again")
			}
			return err
		}
	}

	u := a.manager.CurrentUser()
	if u == nil {
		printf(cmd, "Not signed in\n")
		return nil
	}
	printUser(cmd, u)
	if exp, ok := a.manager.TokenExpiry(); ok {
		printf(cmd, "Token expires %s (in %s)\n", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Second))
	}
	return nil
}

func runRefresh(cmd *cobra.Command, args []string, a *app) error {
	res, err := a.manager.RefreshToken(cmd.Context())
	if err != nil {
		return fmt.Errorf("refresh failed, session cleared: %w", err)
	}
	printf(cmd, "Token refreshed for %s\n", res.User.Username)
	return nil
}

func runWatch(cmd *cobra.Command, args []string, a *app) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.store.Watch(ctx); err != nil {
		return err
	}

	// Mirrors the application shell: the refresh timer runs exactly while a
	// session exists.
	syncTimer := func() {
		if a.manager.IsAuthenticated() {
			if !a.manager.RefreshRunning() {
				a.manager.StartTokenRefresh()
			}
		} else {
			a.manager.StopTokenRefresh()
		}
	}
	cancel := a.manager.Subscribe(func() {
		syncTimer()
		if u := a.manager.CurrentUser(); u != nil {
			printUser(cmd, u)
		} else {
			printf(cmd, "Not signed in\n")
		}
	})
	defer cancel()

	syncTimer()
	a.log.Info().Str("session", a.store.Path()).Msg("watching session, Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

func printUser(cmd *cobra.Command, u *users.User) {
	printf(cmd, "%s (%s) <%s> role=%s balance=%d solved=%d reviewed=%d\n",
		u.Username, u.FullName(), u.Email, u.Role, u.Balance, u.LabsSolved, u.LabsReviewed)
}

func passwordOrPrompt(cmd *cobra.Command, password string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// withTimeout bounds a single command's remote calls.
func withTimeout(cmd *cobra.Command, a *app) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.settings.GetRequestTimeout())
}
