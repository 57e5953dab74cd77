package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a negotiation against a scripted or interactive seller",
		Long: `simulate drives one negotiation with in-memory storage. Seller replies are
read line by line from --script, or from stdin when no script is given.
Each buyer turn is printed with its decision source, action, offer, phase and tactics.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if opts.script != "" {
				f, err := os.Open(opts.script)
				if err != nil {
					return fmt.Errorf("open script: %w", err)
				}
				defer f.Close()
				in = f
				opts.echo = true
			}
			return run(cmd.Context(), opts, in, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file (defaults apply when empty)")
	f.BoolVar(&opts.dev, "dev", false, "console logs at debug level")
	f.StringVar(&opts.reference, "reference", "", "listing URL or description resolved through the catalog")
	f.StringVar(&opts.title, "title", "", "product title (skips the catalog)")
	f.Int64Var(&opts.listed, "listed", 0, "listed price, required with --title")
	f.StringVar(&opts.category, "category", "", "product category")
	f.Int64Var(&opts.target, "target", 0, "target price")
	f.Int64Var(&opts.max, "max", 0, "maximum budget")
	f.StringVar(&opts.approach, "approach", "diplomatic", "assertive, diplomatic or considerate")
	f.StringVar(&opts.script, "script", "", "file with one seller message per line")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("max")
	return cmd
}
