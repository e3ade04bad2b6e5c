package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"outcomes/internal/bootstrap"
	outcomedto "outcomes/internal/modules/outcome/dto"
	sessiondto "outcomes/internal/modules/session/dto"
	"outcomes/internal/platform/config"
	"outcomes/internal/platform/logging"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	dataDir    string
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "outcomes",
		Short:         "Notification outcome attribution and delivery",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data", defaultDataDir(), "data directory for state and pending outcomes")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default <data>/outcomes.yaml)")

	root.AddCommand(newLifecycleCmd(flags))
	root.AddCommand(newNotificationCmd(flags))
	root.AddCommand(newSendCmd(flags))
	root.AddCommand(newSendUniqueCmd(flags))
	root.AddCommand(newFlushCmd(flags))
	root.AddCommand(newPendingCmd(flags))
	root.AddCommand(newClearOutcomesCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newParamsCmd(flags))
	root.AddCommand(newJobCmd(flags))
	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newBackendCmd())
	root.AddCommand(newTUICmd(flags))
	return root
}

func defaultDataDir() string {
	if v := os.Getenv("OUTCOMES_DATA_DIR"); v != "" {
		return v
	}
	return ".outcomes"
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	return config.Load(flags.dataDir, flags.configPath)
}

func loadApp(flags *rootFlags) (*bootstrap.App, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, bootstrap.Options{Logger: logger})
}

// withApp opens the app for one command and closes it afterwards.
func withApp(flags *rootFlags, fn func(ctx context.Context, app *bootstrap.App) error) error {
	app, err := loadApp(flags)
	if err != nil {
		return err
	}
	runErr := fn(context.Background(), app)
	if closeErr := app.Close(); closeErr != nil && runErr == nil {
		return closeErr
	}
	return runErr
}

func newLifecycleCmd(flags *rootFlags) *cobra.Command {
	lifecycle := &cobra.Command{
		Use:   "lifecycle",
		Short: "Report host lifecycle transitions",
		Long: "Report host lifecycle transitions. Each invocation is a fresh process, so its first\n" +
			"foreground always starts a session; use `outcomes run` for a long-lived host.",
	}
	lifecycle.AddCommand(&cobra.Command{
		Use:   "foreground",
		Short: "The app came to the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Foreground(ctx)
				if err != nil {
					return err
				}
				printTransition(cmd, "foreground", out)
				return nil
			})
		},
	})
	lifecycle.AddCommand(&cobra.Command{
		Use:   "background",
		Short: "The app went to the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Background(ctx)
				if err != nil {
					return err
				}
				printTransition(cmd, "background", out)
				return nil
			})
		},
	})
	return lifecycle
}

func newNotificationCmd(flags *rootFlags) *cobra.Command {
	notification := &cobra.Command{Use: "notification", Short: "Report push notification events"}

	var foreground bool
	received := &cobra.Command{
		Use:   "received <id>",
		Short: "A notification was delivered to the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Received(ctx, args[0], !foreground)
				if err != nil {
					return err
				}
				if out.Accepted {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "received %s: queued for indirect attribution\n", out.NotificationID)
				} else {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "received %s: not eligible (app in foreground)\n", out.NotificationID)
				}
				return nil
			})
		},
	}
	received.Flags().BoolVar(&foreground, "foreground", false, "the notification arrived while the app was foregrounded")

	clicked := &cobra.Command{
		Use:   "clicked <id>",
		Short: "The user opened a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Clicked(ctx, args[0])
				if err != nil {
					return err
				}
				printTransition(cmd, "clicked "+args[0], out)
				return nil
			})
		},
	}
	notification.AddCommand(received, clicked)
	return notification
}

func newSendCmd(flags *rootFlags) *cobra.Command {
	var weight float64
	cmd := &cobra.Command{
		Use:   "send <name>",
		Short: "Send an outcome attributed to the current session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				var (
					out outcomedto.DeliveryOutput
					err error
				)
				if cmd.Flags().Changed("weight") {
					out, err = app.Outcomes.SendOutcomeWithValue(ctx, args[0], weight)
				} else {
					out, err = app.Outcomes.SendOutcome(ctx, args[0])
				}
				if err != nil {
					return err
				}
				printDelivery(cmd, out)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&weight, "weight", 0, "outcome value")
	return cmd
}

func newSendUniqueCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send-unique <name>",
		Short: "Send an outcome at most once per notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.Outcomes.SendUniqueOutcome(ctx, args[0])
				if err != nil {
					return err
				}
				printDelivery(cmd, out)
				return nil
			})
		},
	}
}

func newFlushCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Replay outcomes saved after failed sends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.Outcomes.SendSavedOutcomes(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "attempted=%d sent=%d rejected=%d remaining=%d\n", out.Attempted, out.Sent, out.Rejected, out.Remaining)
				return nil
			})
		},
	}
}

func newPendingCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List outcomes waiting for replay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				events, err := app.Outcomes.Pending(ctx)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no pending outcomes")
					return nil
				}
				for _, ev := range events {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", ev.Name, ev.Session, strings.Join(ev.NotificationIDs, ","), ev.Params)
				}
				return nil
			})
		},
	}
}

func newClearOutcomesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-outcomes",
		Short: "Forget which unique outcomes were sent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Outcomes.ClearOutcomes(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "unique outcomes cleared")
				return nil
			})
		},
	}
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session attribution, pending focus time and the sync job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				state, err := app.SessionCLI.State(ctx)
				if err != nil {
					return err
				}
				job, err := app.Jobs.Pending(ctx)
				if err != nil {
					return err
				}
				pending, err := app.Outcomes.Pending(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "session: %s\n", state.Attribution.Type)
				if len(state.Attribution.NotificationIDs) > 0 {
					_, _ = fmt.Fprintf(w, "notifications: %s\n", strings.Join(state.Attribution.NotificationIDs, ", "))
				}
				_, _ = fmt.Fprintf(w, "started: %s\n", state.StartedAt.Format(time.RFC3339))
				_, _ = fmt.Fprintf(w, "active: %s\n", state.ActiveTime.Round(time.Second))
				if len(state.Received) > 0 {
					_, _ = fmt.Fprintf(w, "queued receipts: %s\n", strings.Join(state.Received, ", "))
				}
				for _, f := range state.PendingFocus {
					_, _ = fmt.Fprintf(w, "pending focus: %s %s\n", f.Type, f.ActiveTime.Round(time.Second))
				}
				_, _ = fmt.Fprintf(w, "pending outcomes: %d\n", len(pending))
				if job.Scheduled {
					_, _ = fmt.Fprintf(w, "sync job due: %s\n", job.DueAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newParamsCmd(flags *rootFlags) *cobra.Command {
	params := &cobra.Command{Use: "params", Short: "Attribution policy and outcome settings overrides"}
	params.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective attribution policy and outcome settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(_ context.Context, app *bootstrap.App) error {
				a := app.Config.Attribution
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "direct_enabled=%t\n", a.DirectEnabled)
				_, _ = fmt.Fprintf(w, "indirect_enabled=%t\n", a.IndirectEnabled)
				_, _ = fmt.Fprintf(w, "unattributed_enabled=%t\n", a.UnattributedEnabled)
				_, _ = fmt.Fprintf(w, "notification_limit=%d\n", a.NotificationLimit)
				_, _ = fmt.Fprintf(w, "indirect_window_minutes=%d\n", a.IndirectWindowMinutes)
				_, _ = fmt.Fprintf(w, "session_threshold=%s\n", a.SessionThreshold)
				_, _ = fmt.Fprintf(w, "cache_active=%t\n", app.Config.Outcomes.CacheActive)
				return nil
			})
		},
	})
	params.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist an override; it applies from the next start (keys: " + strings.Join(config.ParamKeys(), ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				if _, err := app.SetParam(ctx, args[0], args[1]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", args[0], args[1])
				return nil
			})
		},
	})
	return params
}

func newJobCmd(flags *rootFlags) *cobra.Command {
	job := &cobra.Command{Use: "job", Short: "Deferred sync job"}
	var force bool
	run := &cobra.Command{
		Use:   "run",
		Short: "Run the pending sync job if it is due",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, app *bootstrap.App) error {
				runJob := app.Jobs.RunDue
				if force {
					runJob = app.Jobs.RunNow
				}
				out, err := runJob(ctx)
				if err != nil {
					return err
				}
				if !out.Ran {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no job due")
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "focus_sent=%d outcomes_sent=%d remaining=%d completed=%t\n", out.FocusSent, out.OutcomesSent, out.Remaining, out.Completed)
				for _, e := range out.Errors {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), e)
				}
				return nil
			})
		},
	}
	run.Flags().BoolVar(&force, "now", false, "run even when no job is due")
	job.AddCommand(run)
	return job
}

func newTUICmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive lifecycle simulator",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cfg, bootstrap.Options{Logger: logging.Discard()})
			if err != nil {
				return err
			}
			defer app.Close()
			return bootstrap.RunTUI(app)
		},
	}
}

func printTransition(cmd *cobra.Command, label string, out sessiondto.TransitionOutput) {
	line := label + ": " + out.Type
	if out.NewSession {
		line += " (new session)"
	}
	if out.Elapsed > 0 {
		line += " active +" + out.Elapsed.Round(time.Second).String()
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
}

func printDelivery(cmd *cobra.Command, out outcomedto.DeliveryOutput) {
	line := fmt.Sprintf("%s [%s] %s", out.Name, out.Session, out.Status)
	if out.Weight != nil {
		line += " weight=" + strconv.FormatFloat(*out.Weight, 'f', -1, 64)
	}
	if len(out.NotificationIDs) > 0 {
		line += " notifications=" + strings.Join(out.NotificationIDs, ",")
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
	if out.Error != "" {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "  "+out.Error)
	}
}
