package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/feed"
	"github.com/spf13/cobra"
)

var (
	listParams domain.ListParams
	trending   bool

	newThread      domain.NewThread
	threadEdit     domain.NewThread
	leaderboardTop int
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List threads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := newFeed(printNotices(cmd.ErrOrStderr()))
		if err := f.Load(cmd.Context(), listParams); err != nil {
			return err
		}
		views := f.Threads()
		if trending {
			views = f.Trending()
		}
		return printThreads(cmd.OutOrStdout(), views)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Show a thread with its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := newFeed(printNotices(cmd.ErrOrStderr()))
		f.Identify(cmd.Context())
		if _, err := f.Open(cmd.Context(), args[0]); err != nil {
			return err
		}
		thread, comments, _ := f.Current()
		return printThread(cmd.OutOrStdout(), thread, comments)
	},
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Start a new thread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := newFeed(printNotices(cmd.ErrOrStderr()))
		if _, err := requireSignIn(cmd.Context(), f); err != nil {
			return err
		}
		thread, err := f.CreateThread(cmd.Context(), newThread)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), thread.ID)
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <thread-id> <text>",
	Short: "Comment on a thread",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := newFeed(printNotices(cmd.ErrOrStderr()))
		if _, err := requireSignIn(cmd.Context(), f); err != nil {
			return err
		}
		comment, err := f.CreateComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), comment.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <thread-id>",
	Short: "Delete one of your threads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := newFeed(printNotices(cmd.ErrOrStderr()))
		if _, err := requireSignIn(cmd.Context(), f); err != nil {
			return err
		}
		return f.DeleteThread(cmd.Context(), args[0])
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <thread-id>",
	Short: "Edit one of your threads",
	Long:  "Edit one of your threads. Fields without a flag keep their current value.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := newFeed(printNotices(cmd.ErrOrStderr()))
		if _, err := requireSignIn(cmd.Context(), f); err != nil {
			return err
		}
		current, err := f.Open(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		in := domain.NewThread{Title: current.Title, Body: current.Body, Category: current.Category}
		flags := cmd.Flags()
		if flags.Changed("title") {
			in.Title = threadEdit.Title
		}
		if flags.Changed("body") {
			in.Body = threadEdit.Body
		}
		if flags.Changed("category") {
			in.Category = threadEdit.Category
		}
		_, err = f.UpdateThread(cmd.Context(), args[0], in)
		return err
	},
}

var editCommentCmd = &cobra.Command{
	Use:   "edit-comment <thread-id> <comment-id> <text>",
	Short: "Replace the text of one of your comments",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openSignedIn(cmd, args[0])
		if err != nil {
			return err
		}
		_, err = f.UpdateComment(cmd.Context(), args[0], args[1], strings.Join(args[2:], " "))
		return err
	},
}

var deleteCommentCmd = &cobra.Command{
	Use:   "delete-comment <thread-id> <comment-id>",
	Short: "Delete one of your comments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openSignedIn(cmd, args[0])
		if err != nil {
			return err
		}
		return f.DeleteComment(cmd.Context(), args[0], args[1])
	},
}

// openSignedIn opens the thread so comment ownership can be checked locally.
func openSignedIn(cmd *cobra.Command, threadID string) (*feed.Feed, error) {
	f := newFeed(printNotices(cmd.ErrOrStderr()))
	if _, err := requireSignIn(cmd.Context(), f); err != nil {
		return nil, err
	}
	if _, err := f.Open(cmd.Context(), threadID); err != nil {
		return nil, err
	}
	return f, nil
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the users whose content received the most votes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		entries, err := newFeed(printNotices(cmd.ErrOrStderr())).Leaderboard(cmd.Context(), leaderboardTop)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tUSER\tSCORE")
		for i, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, e.User.Name, e.Score)
		}
		return w.Flush()
	},
}

func printThreads(out io.Writer, views []feed.ThreadView) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVOTES\tCOMMENTS\tAUTHOR\tTITLE")
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", v.ID, formatTally(v.Tally), v.TotalComments, v.User.Name, v.Title)
	}
	return w.Flush()
}

func printThread(out io.Writer, thread feed.ThreadView, comments []feed.CommentView) error {
	fmt.Fprintf(out, "%s\n%s by %s in %s\n\n", thread.Title, formatTally(thread.Tally), thread.User.Name, thread.Category)
	if thread.Body != "" {
		fmt.Fprintf(out, "%s\n\n", thread.Body)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVOTES\tAUTHOR\tCOMMENT")
	for _, c := range comments {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, formatTally(c.Tally), c.User.Name, c.Content)
	}
	return w.Flush()
}

// formatTally renders counts with the caller's own vote starred.
func formatTally(t domain.Tally) string {
	up := fmt.Sprintf("+%d", t.Up)
	down := fmt.Sprintf("-%d", t.Down)
	switch t.Mine {
	case domain.VoteUp:
		up += "*"
	case domain.VoteDown:
		down += "*"
	}
	return up + " " + down
}

func init() {
	for _, c := range []*cobra.Command{threadsCmd, tuiCmd} {
		c.Flags().StringVar(&listParams.Search, "search", "", "Only threads whose title or body contains this")
		c.Flags().StringVar(&listParams.Sort, "sort", "", "Sort order, e.g. created_at or -total_up_votes")
		c.Flags().IntVar(&listParams.Start, "start", 0, "Offset of the first thread")
		c.Flags().IntVar(&listParams.Length, "length", domain.DefaultPageLength, "Number of threads")
	}
	threadsCmd.Flags().BoolVar(&trending, "trending", false, "Order by up votes plus comments")

	postCmd.Flags().StringVar(&newThread.Title, "title", "", "Thread title")
	postCmd.Flags().StringVar(&newThread.Body, "body", "", "Thread body")
	postCmd.Flags().StringVar(&newThread.Category, "category", "", "Category (default general)")
	_ = postCmd.MarkFlagRequired("title")

	editCmd.Flags().StringVar(&threadEdit.Title, "title", "", "New title")
	editCmd.Flags().StringVar(&threadEdit.Body, "body", "", "New body")
	editCmd.Flags().StringVar(&threadEdit.Category, "category", "", "New category")

	leaderboardCmd.Flags().IntVar(&leaderboardTop, "limit", 20, "Number of users")
}
