package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pscheid92/threadpulse/internal/adapter/tui"
	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/feed"
	"github.com/pscheid92/threadpulse/internal/platform/logging"
	"github.com/pscheid92/threadpulse/internal/platform/version"
	"github.com/pscheid92/threadpulse/internal/vote"
	"github.com/spf13/cobra"
)

var (
	commentID  string
	tuiLogFile string
)

var voteCmd = &cobra.Command{
	Use:   "vote <thread-id> up|down",
	Short: "Toggle your vote on a thread or one of its comments",
	Long: `Toggle your vote on a thread, or on a comment with --comment.

Voting the same way twice removes the vote; voting the other way switches it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID := args[0]
		v, err := domain.ParseVote(args[1])
		if err != nil {
			return err
		}

		var rolledBack atomic.Bool
		notices := printNotices(cmd.ErrOrStderr())
		f := newFeed(feed.NotifierFunc(func(n feed.Notice) {
			if n.Level == feed.LevelError {
				rolledBack.Store(true)
			}
			notices.Notify(n)
		}))

		ctx := cmd.Context()
		if _, err := requireSignIn(ctx, f); err != nil {
			return err
		}
		if _, err := f.Open(ctx, threadID); err != nil {
			return err
		}

		ref := domain.ThreadRef(threadID)
		if commentID != "" {
			ref = domain.CommentRef(threadID, commentID)
			_, err = f.VoteComment(ctx, threadID, commentID, v)
		} else {
			_, err = f.VoteThread(ctx, threadID, v)
		}
		if err != nil {
			return err
		}

		if err := f.Wait(ctx); err != nil {
			return err
		}
		if rolledBack.Load() {
			return fmt.Errorf("vote on %s was not saved", ref)
		}
		tally, _ := f.Tally(ref)
		fmt.Fprintln(cmd.OutOrStdout(), formatTally(tally))
		return nil
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and vote interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Log lines would tear the alternate screen.
		var logOut io.Writer = io.Discard
		if tuiLogFile != "" {
			file, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer file.Close()
			logOut = file
		}
		logging.InitLoggerTo(logOut, cfg.LogLevel, cfg.LogFormat)

		ctx := cmd.Context()
		events := tui.NewEvents()
		f := newFeed(events, vote.WithOnChange(events.VoteChanged))

		model := tui.New(ctx, f, events, listParams)
		if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			return err
		}

		// Let votes cast right before quitting settle.
		waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.VoteTimeout)
		defer cancel()
		return f.Wait(waitCtx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// The version needs no config or API client.
	PersistentPreRun: func(*cobra.Command, []string) {},
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
	},
}

func init() {
	voteCmd.Flags().StringVar(&commentID, "comment", "", "Vote on this comment of the thread instead")
	tuiCmd.Flags().StringVar(&tuiLogFile, "log-file", "", "Append logs to this file while the TUI runs")
}
