package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aide/internal/app"
	"aide/internal/config"
)

var (
	version  = "0.1.0"
	model    string
	provider string
	user     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aide",
		Short: "Personal assistant with governed tools and durable memory",
		Long: `Aide is a conversational assistant that can run tools on your machine.
Every tool call is resolved against a policy registry, gated by your
explicit approval when risky, and recorded in a durable audit trail.`,
		RunE:          runApp,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model to use (default from config)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "model provider: gemini or ollama")
	rootCmd.PersistentFlags().StringVar(&user, "user", "", "user name recorded on conversations")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aide version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.Version = version

	if model != "" {
		cfg.Model.Name = model
	}
	if provider != "" {
		cfg.API.ActiveProvider = provider
	}
	if user != "" {
		cfg.Assistant.User = user
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Run()
}
