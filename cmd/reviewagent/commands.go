package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/agent"
	"github.com/Natural-Heroes/review-agent/internal/indexer"
	"github.com/Natural-Heroes/review-agent/internal/mcp"
	"github.com/Natural-Heroes/review-agent/internal/searcher"
	"github.com/Natural-Heroes/review-agent/internal/storage"
)

const defaultTimeout = 10 * time.Minute

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "reviewagent",
		Short:         "Index repositories and review pull requests with a language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "Path to a .env file (default .env)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: console or json (overrides LOG_FORMAT)")
	flags.DurationVar(&a.timeout, "timeout", defaultTimeout, "Wall-clock limit for one command (0 disables)")

	root.AddCommand(
		newIndexCmd(a),
		newPushCmd(a),
		newSearchCmd(a),
		newReviewCmd(a),
		newFixCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

func newIndexCmd(a *app) *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "index OWNER/REPO",
		Short: "Index every supported file of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}

			s, err := a.buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			stats, err := s.indexer.IndexRepository(ctx, owner, repo, ref)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "main", "Branch, tag or commit SHA to index")
	return cmd
}

func newPushCmd(a *app) *cobra.Command {
	var eventPath string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Apply a GitHub push event payload to the index",
		Long: `Reads a push webhook payload and re-indexes the files it touched.
Only pushes to main or master are applied; files are read at the pushed commit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := readPushEvent(cmd.InOrStdin(), eventPath)
			if err != nil {
				return err
			}

			if !indexer.IsDefaultBranchPush(ev.GetRef()) {
				a.logger.Info("ignoring push to non-default branch", zap.String("ref", ev.GetRef()))
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"skipped": true,
					"ref":     ev.GetRef(),
				})
			}

			owner, repo, sha := indexer.PushTarget(ev)
			if owner == "" || repo == "" || sha == "" {
				return fmt.Errorf("push event is missing repository or commit information")
			}
			changes := indexer.ChangesFromPush(ev)

			s, err := a.buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			stats, err := s.indexer.ApplyPush(ctx, owner, repo, sha, changes)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"repository": owner + "/" + repo,
				"commit":     sha,
				"changes":    changes,
				"statistics": stats,
			})
		},
	}

	cmd.Flags().StringVar(&eventPath, "event", "-", "Path to the push event JSON, or - for stdin")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search OWNER/REPO QUERY",
		Short: "Search an indexed repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}

			s, err := a.buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			hits, err := s.searcher.SearchCode(ctx, owner, repo, args[1], limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), hits)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", searcher.DefaultLimit, "Maximum number of results (1-50)")
	return cmd
}

func newReviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review OWNER/REPO PR",
		Short: "Review a pull request and post inline comments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}
			number, err := parsePositive(args[1], "pull request number")
			if err != nil {
				return err
			}

			model, err := a.model()
			if err != nil {
				return err
			}
			s, err := a.buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			reviewer := agent.NewReviewer(model, s.searcher, s.github,
				agent.WithModel(a.cfg.AnthropicModel),
				agent.WithLogger(a.logger))
			result, err := reviewer.Review(ctx, owner, repo, int(number))
			if result != nil {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}
}

func newFixCmd(a *app) *cobra.Command {
	var instructions string

	cmd := &cobra.Command{
		Use:   "fix OWNER/REPO PR COMMENT_ID",
		Short: "Apply the change requested by a review comment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}
			number, err := parsePositive(args[1], "pull request number")
			if err != nil {
				return err
			}
			commentID, err := parsePositive(args[2], "comment id")
			if err != nil {
				return err
			}

			model, err := a.model()
			if err != nil {
				return err
			}
			s, err := a.buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			fixer := agent.NewFixer(model, s.searcher, s.github,
				agent.WithModel(a.cfg.AnthropicModel),
				agent.WithLogger(a.logger))
			result, err := fixer.Fix(ctx, owner, repo, int(number), commentID, instructions)
			if result != nil {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&instructions, "instructions", "", "Extra guidance for the fix")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the code index over the Model Context Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Info("starting MCP server",
				zap.String("version", version),
				zap.String("build_mode", storage.BuildMode),
				zap.String("driver", storage.DriverName),
				zap.Bool("vector_extension", storage.VectorExtensionAvailable))

			s, err := a.buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			server, err := mcp.NewServer(s.indexer, s.searcher, s.index, s.github, a.logger)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			// The protocol session runs until the client disconnects or a signal arrives
			err = server.Serve(cmd.Context())
			a.logger.Info("MCP server stopped")
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "review-agent\n")
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
		},
	}
}

// splitRepository parses OWNER/REPO
func splitRepository(s string) (string, string, error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository must be OWNER/REPO, got %q", s)
	}
	return owner, repo, nil
}

func parsePositive(s, what string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return n, nil
}

func readPushEvent(stdin io.Reader, path string) (*github.PushEvent, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open event: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var ev github.PushEvent
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode push event: %w", err)
	}
	return &ev, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
