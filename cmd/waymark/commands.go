package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rowanvale/waymark/internal/config"
	"github.com/rowanvale/waymark/internal/contextview"
	"github.com/rowanvale/waymark/internal/layout"
	"github.com/rowanvale/waymark/internal/lifecycle"
	"github.com/rowanvale/waymark/internal/logging"
	"github.com/rowanvale/waymark/internal/migrate"
	"github.com/rowanvale/waymark/internal/tui"
)

// session bundles everything a subcommand needs for one invocation.
// Commands are short-lived: open, run one operation, close.
type session struct {
	cfg    *config.Config
	tree   *layout.Tree
	logger *logging.Logger
}

func openSession(projectDir string) (*session, error) {
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		projectDir = cwd
	}
	if err := config.InitWaymarkDir(projectDir); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", config.WaymarkDir, err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	tree := cfg.Tree()

	// Legacy layouts are upgraded before any operation touches the tree.
	migrator := migrate.New(tree)
	if migrator.NeedsMigration() {
		if err := migrator.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate legacy layout: %w", err)
		}
	}

	logger, err := logging.Open(tree)
	if err != nil {
		logger = nil // logging is advisory; the operation still runs
	}
	return &session{cfg: cfg, tree: tree, logger: logger}, nil
}

func (s *session) close() {
	if s != nil {
		_ = s.logger.Close()
	}
}

func (s *session) manager() *lifecycle.Manager {
	return lifecycle.NewManager(s.tree,
		lifecycle.WithMilestoneCap(s.cfg.MilestoneCap()),
		lifecycle.WithLogMaxLines(s.cfg.LogMaxLines()),
	)
}

func newRootCommand() *cobra.Command {
	var projectDir string

	root := &cobra.Command{
		Use:           "waymark",
		Short:         "Per-project milestone journal with exploration branches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&projectDir, "dir", "", "project directory (defaults to the working directory)")

	root.AddCommand(
		newInitCommand(&projectDir),
		newCommitCommand(&projectDir),
		newBranchCommand(&projectDir),
		newMergeCommand(&projectDir),
		newContextCommand(&projectDir),
		newMigrateCommand(&projectDir),
		newBrowseCommand(&projectDir),
	)
	return root
}

func newInitCommand(projectDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .waymark directory skeleton",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*projectDir)
			if err != nil {
				return err
			}
			defer s.close()
			s.logger.Printf("init: tree ready at %s", s.tree.Dir())
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", s.tree.Dir())
			return nil
		},
	}
}

func newCommitCommand(projectDir *string) *cobra.Command {
	var in lifecycle.CommitInput

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record a milestone on the active branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*projectDir)
			if err != nil {
				return err
			}
			defer s.close()
			result, err := s.manager().Commit(in)
			if err != nil {
				s.logger.Printf("commit rejected: %v", err)
				return err
			}
			s.logger.Printf("commit %s on %s: %s", result.ID, result.Branch, in.Title)
			fmt.Fprintf(cmd.OutOrStdout(), "%s on %s\n", result.ID, result.Branch)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "one-line milestone title")
	cmd.Flags().StringVar(&in.What, "what", "", "what changed")
	cmd.Flags().StringVar(&in.Why, "why", "", "why it changed")
	cmd.Flags().StringSliceVar(&in.Files, "files", nil, "files touched (comma separated or repeated)")
	cmd.Flags().StringVar(&in.Next, "next", "", "the next step")
	return cmd
}

func newBranchCommand(projectDir *string) *cobra.Command {
	var purpose, hypothesis string

	cmd := &cobra.Command{
		Use:   "branch <name>",
		Short: "Create an exploration branch and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*projectDir)
			if err != nil {
				return err
			}
			defer s.close()
			result, err := s.manager().Branch(args[0], purpose, hypothesis)
			if err != nil {
				s.logger.Printf("branch rejected: %v", err)
				return err
			}
			s.logger.Printf("branch created: %s", result.Branch)
			fmt.Fprintf(cmd.OutOrStdout(), "on branch %s\n", result.Branch)
			return nil
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", "", "what this branch explores")
	cmd.Flags().StringVar(&hypothesis, "hypothesis", "", "what you expect to find")
	return cmd
}

func newMergeCommand(projectDir *string) *cobra.Command {
	var outcome, conclusion string

	cmd := &cobra.Command{
		Use:   "merge <name>",
		Short: "Close an exploration branch and summarize it on main",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*projectDir)
			if err != nil {
				return err
			}
			defer s.close()
			parsed, err := lifecycle.ParseOutcome(outcome)
			if err != nil {
				return err
			}
			result, err := s.manager().Merge(args[0], parsed, conclusion)
			if err != nil {
				s.logger.Printf("merge rejected: %v", err)
				return err
			}
			s.logger.Printf("merged %s as %s", args[0], result.MergeCommitID)
			fmt.Fprintf(cmd.OutOrStdout(), "merged as %s on main\n", result.MergeCommitID)
			return nil
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "success, failure, or partial")
	cmd.Flags().StringVar(&conclusion, "conclusion", "", "what the exploration concluded")
	return cmd
}

func newContextCommand(projectDir *string) *cobra.Command {
	var req contextview.Request

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print layered project context (level 1-5)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*projectDir)
			if err != nil {
				return err
			}
			defer s.close()
			if req.Level == 0 {
				req.Level = s.cfg.DefaultContextLevel()
			}
			text, err := contextview.New(s.tree).Render(req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().IntVar(&req.Level, "level", 0, "disclosure level 1-5 (default from config)")
	cmd.Flags().StringVar(&req.Branch, "branch", "", "branch to read (defaults to the active branch)")
	cmd.Flags().StringVar(&req.CommitID, "commit", "", "level 5: look up a commit by id")
	cmd.Flags().StringVar(&req.SearchTerm, "search", "", "level 5: substring search across commits")
	return cmd
}

func newMigrateCommand(projectDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade a legacy flat layout to the per-branch layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// openSession already runs the migration when needed; this
			// command exists so hooks can trigger it explicitly and see
			// whether anything happened.
			cwd := *projectDir
			if cwd == "" {
				dir, err := os.Getwd()
				if err != nil {
					return err
				}
				cwd = dir
			}
			tree := layout.New(filepath.Join(cwd, config.WaymarkDir))
			migrator := migrate.New(tree)
			if !migrator.NeedsMigration() {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to migrate")
				return nil
			}
			if err := migrator.Migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated to per-branch layout")
			return nil
		},
	}
}

func newBrowseCommand(projectDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the journal in a TUI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*projectDir)
			if err != nil {
				return err
			}
			defer s.close()
			app, err := tui.NewApp(s.tree)
			if err != nil {
				return err
			}
			p := tea.NewProgram(app, tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}
