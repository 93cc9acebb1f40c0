package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"daily_quote_mailer/internal/app"
	"daily_quote_mailer/internal/infra/config"
	idb "daily_quote_mailer/internal/infra/database"
	"daily_quote_mailer/internal/infra/logger"
	"daily_quote_mailer/internal/infra/mailer"
	"daily_quote_mailer/internal/infra/quotes"
	"daily_quote_mailer/internal/infra/scheduler"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "quotemailer",
	Short: "Emails the quote of the day to every active subscriber",
	Long: "quotemailer fetches a motivational quote once per day and mails it to each\n" +
		"active daily subscriber. Without a subcommand it behaves like 'serve'.",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler in the foreground until interrupted",
	RunE:  runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily quote job once, now",
	RunE:  runOnce,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file to load before reading the environment")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads and validates configuration and initializes the process logger.
func setup() (*config.AppConfig, *logrus.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logger.Setup(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)
	return cfg, log, nil
}

// newJobRunner wires the quote source, the subscriber directory and the SMTP notifier.
func newJobRunner(cfg *config.AppConfig, log *logrus.Logger) *app.JobRunner {
	fetcher := quotes.NewZenQuotesClient(cfg.QuoteAPIURL, nil, log)
	directory := idb.NewPostgresUserDirectory(idb.PostgresConnector(cfg.Database.DSN()), log)
	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.Email.SMTPServer,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SenderEmail,
		Password: cfg.Email.SenderPassword,
	})
	notifier := app.NewEmailNotifier(sender, cfg.Email.SenderEmail, log, app.WithMaxRetries(cfg.Email.MaxRetries))
	return app.NewJobRunner(fetcher, directory, notifier, log)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	quoteScheduler := scheduler.NewQuoteScheduler(newJobRunner(cfg, log), log, cfg.CronSpecDaily)
	if err := quoteScheduler.Start(); err != nil {
		return err
	}
	log.Info("Scheduler is running... (Press Ctrl+C to stop)")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down scheduler...")
	quoteScheduler.Stop()
	log.Info("Scheduler stopped by user")
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats := newJobRunner(cfg, log).Run(ctx)
	log.WithField("run_id", stats.RunID).Infof("Run finished with outcome %s", stats.Outcome)
	return nil
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("could not load application configuration: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), cfg.Describe())
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nWARNING: %v\n", err)
	}
	return nil
}
