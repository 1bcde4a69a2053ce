// cmd/docvc/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"docvc/internal/diff"
	"docvc/internal/errors"
	"docvc/internal/history"
	"docvc/internal/logging"
	"docvc/internal/repo"
	"docvc/internal/watch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docvc",
	Short: "docvc versions a single working text document",
	Long: `docvc keeps a linear history of snapshots of one working document.
Each commit records the document's content, a message, and a fingerprint
used to detect whether anything changed since the last snapshot.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func openRepo(forceFallback bool) (*repo.Repository, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	// Verbose runs get a debug console logger; otherwise the repository
	// builds its logger from the configured log level.
	var logger *zap.Logger
	if verbose {
		cli, err := logging.NewCLILogger(true)
		if err != nil {
			return nil, fmt.Errorf("initializing logger: %w", err)
		}
		logger = cli.Logger
	}

	return repo.Open(cwd, repo.Options{ForceFallbackDiff: forceFallback}, logger)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	var initCmd = &cobra.Command{
		Use:   "init <document>",
		Short: "Initialize version tracking for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document := filepath.Clean(args[0])
			if _, err := os.Stat(document); err != nil {
				return fmt.Errorf("document %s: %w", document, err)
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			if err := repo.Initialize(cwd, document); err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}

			fmt.Printf("Initialized docvc repository for %s\n", document)
			return nil
		},
	}

	var commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Snapshot the current document state",
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")
			force, _ := cmd.Flags().GetBool("force")

			r, err := openRepo(false)
			if err != nil {
				return err
			}
			defer r.Close()

			content, err := r.ReadDocument()
			if err != nil {
				return err
			}

			commit, err := r.Service.Commit(content, r.Config.Document, message, force)
			if err != nil {
				if errors.IsKind(err, errors.KindUnchanged) {
					fmt.Println("Nothing changed since the last commit (use --force to commit anyway)")
					return nil
				}
				return err
			}

			if r.Commits.Recovered() {
				yellow := color.New(color.FgYellow).SprintFunc()
				fmt.Println(yellow("warning: commit log was rebuilt from snapshot files"))
			}

			fmt.Printf("Committed %s (%s)\n", commit.ID, commit.Timestamp)
			return nil
		},
	}
	commitCmd.Flags().StringP("message", "m", "", "Commit message")
	commitCmd.Flags().BoolP("force", "f", false, "Commit even if the document is unchanged")

	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "List all commits",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(false)
			if err != nil {
				return err
			}
			defer r.Close()

			hist, err := r.Commits.Load()
			if err != nil {
				return err
			}

			if len(hist.Commits) == 0 {
				fmt.Println("No commits yet")
				return nil
			}

			cyan := color.New(color.FgCyan).SprintFunc()
			for i := len(hist.Commits) - 1; i >= 0; i-- {
				c := hist.Commits[i]
				marker := " "
				if c.ID == hist.CurrentVersion {
					marker = "*"
				}
				message := c.Message
				if message == "" {
					message = "(no message)"
				}
				fmt.Printf("%s %s  %s  %s\n", marker, cyan(c.ID), c.Timestamp, message)
			}
			return nil
		},
	}

	var showCmd = &cobra.Command{
		Use:   "show <version>",
		Short: "Print the content of a committed version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(false)
			if err != nil {
				return err
			}
			defer r.Close()

			commit, err := r.Resolver.Resolve(args[0])
			if err != nil {
				return err
			}

			content, err := r.Snapshots.Read(commit.ID, commit.Filename)
			if err != nil {
				return err
			}

			os.Stdout.Write(content)
			return nil
		},
	}

	var diffCmd = &cobra.Command{
		Use:   "diff [version-a] [version-b]",
		Short: "Show differences between versions",
		Long: `Show differences between two versions of the document.

With no arguments, compares the two most recent commits. With one
argument, compares that version against the working copy. With two,
compares them in the order given.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fallback, _ := cmd.Flags().GetBool("fallback")

			r, err := openRepo(fallback)
			if err != nil {
				return err
			}
			defer r.Close()

			var specA, specB string
			if len(args) > 0 {
				specA = args[0]
			}
			if len(args) > 1 {
				specB = args[1]
			}

			result, labelA, labelB, err := r.DiffPair(specA, specB)
			if err != nil {
				return err
			}

			if result.Rendered == "" {
				fmt.Printf("%s and %s are identical\n", labelA, labelB)
				return nil
			}

			fmt.Printf("diff %s %s (via %s)\n", labelA, labelB, result.ServedBy)
			printColoredDiff(result.Rendered)

			st := diff.Statistics(result.Rendered)
			fmt.Printf("%d insertion(s), %d deletion(s)\n", st.Additions, st.Deletions)
			return nil
		},
	}
	diffCmd.Flags().Bool("fallback", false, "Skip the external diff tool and use the built-in engine")

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Watch the document and report (or commit) changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			auto, _ := cmd.Flags().GetBool("auto")

			r, err := openRepo(false)
			if err != nil {
				return err
			}
			defer r.Close()

			onChange := func() {
				content, err := r.ReadDocument()
				if err != nil {
					r.Logger.Warn("reading document", zap.Error(err))
					return
				}

				latest, _, err := r.Commits.Latest()
				if err != nil {
					r.Logger.Warn("loading commit log", zap.Error(err))
					return
				}

				if !r.Detector.HasChanged(content, latest) {
					return
				}

				if !auto {
					fmt.Printf("%s changed since %s\n", r.Config.Document, latestID(latest))
					return
				}

				commit, err := r.Service.Commit(content, r.Config.Document, "auto-commit on save", false)
				if err != nil {
					if errors.IsKind(err, errors.KindUnchanged) {
						return
					}
					r.Logger.Warn("auto-commit failed", zap.Error(err))
					return
				}
				fmt.Printf("Auto-committed %s\n", commit.ID)
			}

			w, err := watch.New(r.DocumentPath(), 500*time.Millisecond, onChange, r.Logger)
			if err != nil {
				return err
			}
			defer w.Close()

			fmt.Printf("Watching %s (ctrl-c to stop)\n", r.Config.Document)
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt)
			<-sig
			return nil
		},
	}
	watchCmd.Flags().Bool("auto", false, "Commit automatically when the document changes")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
}

func latestID(c *history.Commit) string {
	if c == nil {
		return "(no commits)"
	}
	return c.ID
}

func printColoredDiff(diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			header.Println(line)
		case strings.HasPrefix(line, "+"):
			added.Println(line)
		case strings.HasPrefix(line, "-"):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
