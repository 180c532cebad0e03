package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/threadpulse/internal/adapter/forumapi"
	"github.com/pscheid92/threadpulse/internal/adapter/metrics"
	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/feed"
	"github.com/pscheid92/threadpulse/internal/platform/config"
	"github.com/pscheid92/threadpulse/internal/platform/logging"
	"github.com/pscheid92/threadpulse/internal/vote"
	"github.com/spf13/cobra"
)

var (
	apiURL      string
	token       string
	metricsAddr string

	cfg      *config.ClientConfig
	client   *forumapi.Client
	registry *prometheus.Registry
	recorder *metrics.ReconcilerMetrics
)

var rootCmd = &cobra.Command{
	Use:   "threadpulse",
	Short: "Browse, post and vote on the forum from the terminal",
	Long: `threadpulse is the command line client of the forum.

Votes are shown immediately and persisted in the background; a vote the
server rejects is rolled back with a notice. Sign in with 'threadpulse login'
and export the printed token as THREADPULSE_TOKEN.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.LoadClient()
	if err != nil {
		return err
	}
	logging.InitLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	if cmd.Flags().Changed("api-url") {
		cfg.APIURL = apiURL
	}
	if cmd.Flags().Changed("token") {
		cfg.Token = token
	}

	client, err = forumapi.New(cfg.APIURL,
		forumapi.WithToken(cfg.Token),
		forumapi.WithTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	registry = metrics.NewRegistry()
	recorder = metrics.NewReconcilerMetrics(registry)
	if metricsAddr != "" {
		serveMetrics(metricsAddr)
	}
	return nil
}

// serveMetrics exposes the client's vote metrics for the lifetime of the
// process, which matters for long TUI sessions.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", "addr", addr, "error", err)
		}
	}()
}

func newFeed(notifier feed.Notifier, opts ...vote.Option) *feed.Feed {
	opts = append([]vote.Option{
		vote.WithTimeout(cfg.VoteTimeout),
		vote.WithRecorder(recorder),
	}, opts...)
	return feed.New(client, notifier, opts...)
}

func printNotices(w io.Writer) feed.Notifier {
	return feed.NotifierFunc(func(n feed.Notice) {
		if n.Level == feed.LevelError {
			fmt.Fprintf(w, "error: %s\n", n.Message)
			return
		}
		fmt.Fprintln(w, n.Message)
	})
}

// requireSignIn resolves the current user or fails with a hint.
func requireSignIn(ctx context.Context, f *feed.Feed) (*domain.User, error) {
	user := f.Identify(ctx)
	if user == nil {
		return nil, fmt.Errorf("%w: run 'threadpulse login' and export THREADPULSE_TOKEN", domain.ErrUnauthenticated)
	}
	return user, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Forum API base URL (or set THREADPULSE_API_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token (or set THREADPULSE_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve client metrics on this address, e.g. :9091")

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(threadsCmd, showCmd, postCmd, editCmd, deleteCmd, leaderboardCmd)
	rootCmd.AddCommand(commentCmd, editCommentCmd, deleteCommentCmd)
	rootCmd.AddCommand(voteCmd, tuiCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", domain.ErrorMessage(err))
		stop()
		os.Exit(1)
	}
}
