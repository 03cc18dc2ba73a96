package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tombergan/cstack/btrace"
	"github.com/tombergan/cstack/config"
	"github.com/tombergan/cstack/crash"
	"github.com/tombergan/cstack/diag"
	"github.com/tombergan/cstack/exithook"
)

func NewRootCommand() *cobra.Command {
	c := &cobra.Command{
		Use:           "btracectl",
		Short:         "Capture and print stack traces, or crash on purpose",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetInt("debuglevel")
			switch {
			case level >= 2:
				diag.Log.SetLevel(logrus.TraceLevel)
			case level == 1:
				diag.Log.SetLevel(logrus.DebugLevel)
			}
			diag.SetOutput(cmd.OutOrStdout())
			return nil
		},
	}
	c.PersistentFlags().Int("debuglevel", 0, "debug verbosity level")
	c.PersistentFlags().String("config", "", "configuration file")

	c.AddCommand(
		NewBackendCommand(),
		NewDemoCommand(),
		NewPrintCommand(),
		NewNamedCommand(),
		NewReportCommand(),
		NewCrashCommand(),
		NewAdminCommand(),
	)
	return c
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.NewConfig()
	}
	return config.NewConfigFromFile(path)
}

// captureAll captures one trace per label into the current context.
func captureAll(labels []string) {
	for _, label := range labels {
		btrace.Capture(label)
	}
}

func NewBackendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Print the compiled-in capture backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), btrace.Backend())
			return nil
		},
	}
}

func NewDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo [label...]",
		Short: "Capture a trace per label, then print the store newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"gc", "alloc", "io"}
			}
			ctx := btrace.Attach("demo")
			defer ctx.Close()
			captureAll(args)
			for k := 1; k <= len(args) && k <= btrace.SaveTraces; k++ {
				btrace.Print(k)
			}
			return nil
		},
	}
}

func NewPrintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print <k>",
		Short: "Print the k-th most recent trace (1 is the newest)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrapf(err, "bad trace index %q", args[0])
			}
			labels, _ := cmd.Flags().GetStringArray("capture")
			ctx := btrace.Attach("print")
			defer ctx.Close()
			captureAll(labels)
			btrace.Print(k)
			return nil
		},
	}
	cmd.Flags().StringArrayP("capture", "c", nil, "capture a trace with this label first")
	return cmd
}

func NewNamedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "named <label>",
		Short: "Print the most recent trace with the given label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, _ := cmd.Flags().GetStringArray("capture")
			ctx := btrace.Attach("named")
			defer ctx.Close()
			captureAll(labels)
			btrace.PrintNamed(args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayP("capture", "c", nil, "capture a trace with this label first")
	return cmd
}

func NewReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report [label]",
		Short: "Capture, print and discard a trace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := "report"
			if len(args) == 1 {
				label = args[0]
			}
			btrace.Report(label)
			return nil
		},
	}
}

func NewCrashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crash",
		Short: "Install the crash handler and crash the process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			exithook.Register("btracectl", func(ctx context.Context, status int) error {
				diag.Printf("btracectl exit hook: status %d\n", status)
				return nil
			})
			if _, err := crash.Install(crash.WithConfig(cfg)); err != nil {
				return err
			}

			ctx := btrace.Attach("main")
			defer ctx.Close()
			btrace.Capture("before-crash")

			if usePanic, _ := cmd.Flags().GetBool("panic"); usePanic {
				defer crash.RecoverPanic()
				panic("btracectl: requested panic")
			}
			name, _ := cmd.Flags().GetString("signal")
			return raise(name)
		},
	}
	cmd.Flags().String("signal", "SIGSEGV", "fatal signal to send to the process")
	cmd.Flags().Bool("panic", false, "panic instead of sending a signal")
	return cmd
}

func NewAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin <name> [arg]",
		Short: "Call an admin entry point (builds with -tags cstack_debug)",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, name := range btrace.AdminCommands() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			fn, ok := btrace.AdminCommand(args[0])
			if !ok {
				return errors.Errorf("no admin command %s", args[0])
			}
			labels, _ := cmd.Flags().GetStringArray("capture")
			ctx := btrace.Attach("admin")
			defer ctx.Close()
			captureAll(labels)
			if !fn(args[1:]...) {
				return errors.Errorf("%s failed", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringArrayP("capture", "c", nil, "capture a trace with this label first")
	return cmd
}
