package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/openlabs-client/auth"
	"github.com/jrsteele09/openlabs-client/chat"
	"github.com/jrsteele09/openlabs-client/gateway"
	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	"github.com/jrsteele09/openlabs-client/internal/config"
	"github.com/jrsteele09/openlabs-client/objectstore"
	"github.com/jrsteele09/openlabs-client/sessions"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "openlabs",
	Short: "Command line client for Open Labs Share",
	Long: `openlabs signs in to Open Labs Share, keeps the session fresh and
reads, submits and downloads labs and articles from the terminal.

The session is stored in a file shared by every openlabs process using the
same session directory, so "openlabs watch" sees sign-ins made elsewhere.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "openlabs.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// app holds the collaborators built from the loaded configuration.
type app struct {
	settings *config.Settings
	log      zerolog.Logger
	store    *sessions.FileStore
	manager  *auth.Manager
	gateway  *gateway.Client
	objects  *objectstore.Client
	chat     *chat.Client
}

func newApp() (*app, error) {
	settings, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log := newLogger(settings.GetLogLevel())

	store, err := sessions.NewFileStore(settings.GetSessionDir(), sessions.WithLogger(log.With().Str("component", "sessions").Logger()))
	if err != nil {
		return nil, err
	}
	timeout := apiclient.WithTimeout(settings.GetRequestTimeout())
	tokens := apiclient.WithToken(sessions.AccessTokenFunc(store))

	authClient := auth.NewClient(settings.GetAuthURL(), timeout, tokens, apiclient.WithLogger(log))
	manager := auth.NewManager(store, authClient,
		auth.WithLogger(log.With().Str("component", "auth").Logger()),
		auth.WithRefreshInterval(settings.GetRefreshInterval()),
		auth.WithRequestTimeout(settings.GetRequestTimeout()),
	)

	return &app{
		settings: settings,
		log:      log,
		store:    store,
		manager:  manager,
		gateway:  gateway.NewClient(settings.GetGatewayURL(), timeout, tokens, apiclient.WithLogger(log)),
		objects:  objectstore.New(settings.GetStorageURL(), timeout),
		chat:     chat.NewClient(settings.GetChatURL(), timeout, apiclient.WithLogger(log)),
	}, nil
}

func (a *app) Close() {
	a.manager.Close()
	if err := a.store.Close(); err != nil {
		a.log.Debug().Err(err).Msg("closing session store")
	}
}

// run builds the app for the duration of one command.
func run(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
