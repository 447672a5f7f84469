package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bikepark/parkclient/internal/config"
	"github.com/bikepark/parkclient/internal/logging"
	"github.com/bikepark/parkclient/remote"
)

var (
	phone    string
	password string
	envFile  string
	baseURL  string
)

// sessionFunc runs once the user is signed in.
type sessionFunc func(ctx context.Context, r *repl)

var rootCmd = &cobra.Command{
	Use:   "bikepark",
	Short: "Terminal client for the bicycle parking service",
	Long: `bikepark signs in to the parking backend and opens an interactive
session for parking bicycles in zones and exiting with payment.

Environment Variables:
  BIKEPARK_BASE_URL          Backend API URL (default: http://localhost:3000/api)
  BIKEPARK_HTTP_TIMEOUT      Request timeout in seconds (default: 30)
  BIKEPARK_MIN_EXIT_BALANCE  Balance required before an exit (default: 20)
  BIKEPARK_EXIT_LOCK         per-bicycle or global (default: per-bicycle)
  LOG_LEVEL, LOG_FORMAT      Logging (default: info, console)`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), true, func(ctx context.Context, r *repl) {
			r.loop(ctx)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Sign in, print balance and bicycles, then sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), false, func(ctx context.Context, r *repl) {
			r.status()
			r.store.SignOut(ctx)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Sign in, print the payment history, then sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), false, func(ctx context.Context, r *repl) {
			r.history(ctx)
			r.store.SignOut(ctx)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&phone, "phone", "", "phone number to sign in with")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "password to sign in with")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "optional env file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "api-url", "", "Backend API URL (overrides "+config.BaseURLVar+")")
	rootCmd.AddCommand(statusCmd, historyCmd)
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func run(ctx context.Context, in io.Reader, out io.Writer, banner bool, fn sessionFunc) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if baseURL != "" {
		if err := os.Setenv(config.BaseURLVar, baseURL); err != nil {
			return err
		}
	}
	c, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger := logging.Init(c.GetLogLevel(), c.GetLogFormat())
	if banner {
		displayAppname(out, c.GetAppName())
	}

	api, err := remote.NewClient(c.GetBaseURL(),
		remote.WithTimeout(c.GetHTTPTimeout()),
		remote.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	return start(ctx, c, api, in, out, fn)
}

// start signs in on the console and hands the session to fn.
func start(ctx context.Context, c config.Config, api remote.API, in io.Reader, out io.Writer, fn sessionFunc) error {
	r, err := newREPL(c, api, newConsole(in, out))
	if err != nil {
		return err
	}
	if !r.signIn(ctx, phone, password) {
		return nil
	}
	fn(ctx, r)
	return nil
}

func displayAppname(out io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(out, titleStyle.Render(myFigure.String()))
}
