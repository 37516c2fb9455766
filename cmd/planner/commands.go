package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MihkelHunter/dayplanner/internal/auth"
	"github.com/MihkelHunter/dayplanner/internal/backend"
	"github.com/MihkelHunter/dayplanner/internal/config"
	"github.com/MihkelHunter/dayplanner/internal/logging"
	"github.com/MihkelHunter/dayplanner/internal/tasks"
	"github.com/MihkelHunter/dayplanner/internal/todo"
)

// cli holds what every subcommand shares once the root has run.
type cli struct {
	cfgPath string
	be      *backend.Backend
	store   *tasks.Store
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Plan your day from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", "", "config file (default ~/.dayplanner/config.yaml)")

	root.AddCommand(
		c.addCmd(),
		c.listCmd(),
		c.editCmd(),
		c.toggleCmd(),
		c.deleteCmd(),
		c.clearCmd(),
		c.statsCmd(),
		c.loginCmd(),
		c.logoutCmd(),
	)
	return root
}

func (c *cli) open(ctx context.Context) error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	be, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	c.be = be
	c.store = tasks.New(be.Repo, tasks.WithLogger(log))
	return nil
}

func (c *cli) close() error {
	if c.be == nil {
		return nil
	}
	c.store.Dispose()
	err := c.be.Close()
	c.be = nil
	return err
}

// ready restores the session when there is one and performs the first load.
func (c *cli) ready(ctx context.Context) error {
	if g := c.be.Gate; g != nil {
		if _, ok := g.Start(ctx).(auth.Authenticated); !ok {
			return errors.New("not signed in: run planner login <id-token>")
		}
	}
	return c.store.Init(ctx)
}

// resolve accepts a full id or a unique prefix of one.
func (c *cli) resolve(ref string) (string, error) {
	var match string
	for _, t := range c.store.Snapshot().Tasks {
		if t.ID == ref {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", ref)
			}
			match = t.ID
		}
	}
	if match == "" {
		return ref, nil
	}
	return match, nil
}

func printTask(w io.Writer, t todo.Task) {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	at := "     "
	if t.Time != nil {
		at = t.Time.String()
	}
	fmt.Fprintf(w, "[%s] %-8.8s  %-6s  %s  %s\n", mark, t.ID, t.Priority, at, t.Text)
	if t.Description != "" {
		fmt.Fprintf(w, "    %s\n", t.Description)
	}
}

func (c *cli) addCmd() *cobra.Command {
	var priority, at, desc string
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := todo.CreateRequest{Text: strings.Join(args, " "), Description: desc}
			var err error
			if priority != "" {
				if req.Priority, err = todo.ParsePriority(priority); err != nil {
					return err
				}
			}
			if at != "" {
				tod, err := todo.ParseTimeOfDay(at)
				if err != nil {
					return err
				}
				req.Time = &tod
			}
			if err := c.ready(cmd.Context()); err != nil {
				return err
			}
			t, err := c.store.AddTask(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to add task: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Task added successfully!")
			printTask(cmd.OutOrStdout(), t)
			return nil
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVarP(&at, "time", "t", "", "reminder time, HH:MM")
	cmd.Flags().StringVarP(&desc, "description", "d", "", "longer description")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := todo.ParseFilter(filter)
			if err != nil {
				return err
			}
			if err := c.ready(cmd.Context()); err != nil {
				return err
			}
			shown, stats := c.store.View(f)
			out := cmd.OutOrStdout()
			if len(shown) == 0 {
				fmt.Fprintln(out, "No tasks")
			}
			for _, t := range shown {
				printTask(out, t)
			}
			fmt.Fprintf(out, "%d / %d completed\n", stats.Completed, stats.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, pending, completed or high")
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var text, desc, priority, at string
	var clearTime bool
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req todo.UpdateRequest
			flags := cmd.Flags()
			if flags.Changed("text") {
				req.Text = &text
			}
			if flags.Changed("description") {
				req.Description = &desc
			}
			if flags.Changed("priority") {
				p, err := todo.ParsePriority(priority)
				if err != nil {
					return err
				}
				req.Priority = &p
			}
			if flags.Changed("time") {
				tod, err := todo.ParseTimeOfDay(at)
				if err != nil {
					return err
				}
				req.Time = &tod
			}
			req.ClearTime = clearTime
			if req.Empty() {
				return errors.New("nothing to change")
			}

			if err := c.ready(cmd.Context()); err != nil {
				return err
			}
			id, err := c.resolve(args[0])
			if err != nil {
				return err
			}
			t, err := c.store.UpdateTask(cmd.Context(), id, req)
			if err != nil {
				return fmt.Errorf("failed to update task: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Task updated successfully!")
			printTask(cmd.OutOrStdout(), t)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "new text")
	cmd.Flags().StringVarP(&desc, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVarP(&at, "time", "t", "", "reminder time, HH:MM")
	cmd.Flags().BoolVar(&clearTime, "clear-time", false, "remove the reminder time")
	return cmd
}

func (c *cli) toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a task done or pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(cmd.Context()); err != nil {
				return err
			}
			id, err := c.resolve(args[0])
			if err != nil {
				return err
			}
			t, err := c.store.ToggleTask(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to update task: %w", err)
			}
			if t.Completed {
				fmt.Fprintln(cmd.OutOrStdout(), "Task completed!")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Task marked as pending")
			}
			return nil
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(cmd.Context()); err != nil {
				return err
			}
			id, err := c.resolve(args[0])
			if err != nil {
				return err
			}
			if err := c.store.DeleteTask(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete task: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Task deleted")
			return nil
		},
	}
}

func (c *cli) clearCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete completed tasks, or every task with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			run, f := c.store.ClearCompleted, todo.FilterCompleted
			what, none := "completed task(s)", "No completed tasks to clear"
			if all {
				run, f = c.store.ClearAll, todo.FilterAll
				what, none = "task(s)", "No tasks to clear"
			}
			if targets, _ := c.store.View(f); len(targets) == 0 {
				fmt.Fprintln(out, none)
				return nil
			}
			n, err := run(cmd.Context())
			if n > 0 {
				fmt.Fprintf(out, "%d %s deleted\n", n, what)
			}
			if err != nil {
				return fmt.Errorf("failed to clear tasks: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "delete every task")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show progress for the day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(cmd.Context()); err != nil {
				return err
			}
			_, stats := c.store.View(todo.FilterAll)
			sum, err := c.store.Summary(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:     %d\n", sum.Total)
			fmt.Fprintf(out, "Completed: %d (%d%%)\n", sum.Completed, stats.Percent())
			fmt.Fprintf(out, "Pending:   %d\n", sum.Pending)
			fmt.Fprintf(out, "High:      %d\n", sum.HighPriority)
			fmt.Fprintf(out, "Overdue:   %d\n", sum.Overdue)
			return nil
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <id-token>",
		Short: "Sign in to the remote service with an identity token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := c.be.Gate
			if g == nil {
				return errors.New("login needs backend: remote")
			}
			if err := g.Login(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if s, ok := g.State().(auth.Authenticated); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", s.User.Email)
			}
			return nil
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := c.be.Gate
			if g == nil {
				return errors.New("logout needs backend: remote")
			}
			g.Start(cmd.Context())
			g.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
