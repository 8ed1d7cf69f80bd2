// Command pressrun processes one press-release folder already on disk,
// the manual path when webhook automation is down or a run needs a redo.
//
// Usage:
//
//	pressrun "/data/prs/Widget Launch PR"
//	pressrun --upload --notify --ticket MARCOM-123 "/data/prs/Widget Launch PR"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ezwire/presskit/config"
	"github.com/ezwire/presskit/ftpup"
	"github.com/ezwire/presskit/notify"
	"github.com/ezwire/presskit/release"
	"github.com/ezwire/presskit/render"
)

var (
	configPath  string
	templateDir string
	imageURL    string
	subject     string
	ticketKey   string
	doUpload    bool
	doNotify    bool
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "pressrun <folder>",
	Short: "Process one press-release folder without the webhook",
	Long: `Pressrun runs the processing pipeline on a local folder: locate the
docx/png/pdf inputs, render the web and email HTML into the folder, and
optionally upload the result over FTP and post the Slack notification.
The processing result is printed as JSON on stdout; logs go to stderr.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to presskit.yaml config file")
	rootCmd.Flags().StringVar(&templateDir, "templates", "", "directory with web.html/email.html overrides")
	rootCmd.Flags().StringVar(&imageURL, "image-url", "", "tracking URL for the embedded email image")
	rootCmd.Flags().StringVar(&subject, "subject", "", "email subject line override")
	rootCmd.Flags().StringVar(&ticketKey, "ticket", "MANUAL", "ticket key for notifications")
	rootCmd.Flags().BoolVar(&doUpload, "upload", false, "upload the processed files over FTP")
	rootCmd.Flags().BoolVar(&doNotify, "notify", false, "post the Slack notification")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn, error")
}

func run(cmd *cobra.Command, args []string) error {
	folder := args[0]

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if templateDir != "" {
		cfg.TemplateDir = templateDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := cmd.Context()
	res := release.NewProcessor(cfg, logger).Process(folder, release.LoadTemplates(cfg.TemplateDir), render.Options{
		ImageURL: imageURL,
		Subject:  subject,
	})

	out := struct {
		*release.Result
		Upload *ftpup.Result `json:"upload,omitempty"`
	}{Result: res}

	var uploadErr error
	if doUpload && res.Success {
		if cfg.FTP.Host == "" {
			uploadErr = errors.New("ftp.host not configured")
		} else {
			up := ftpup.New(cfg.FTP, logger).Upload(ctx, res.Uploads, res.FolderName, res.MonthFolder)
			out.Upload = &up
			if !up.Success {
				uploadErr = errors.New(up.Error)
			}
		}
	}

	if doNotify {
		n := notify.New(cfg.Slack.WebhookURL, logger)
		var nerr error
		switch {
		case !res.Success:
			nerr = n.Failure(ctx, ticketKey, strings.Join(res.Errors, "; "))
		case uploadErr != nil:
			nerr = n.Failure(ctx, ticketKey, "FTP upload failed: "+uploadErr.Error())
		default:
			nerr = n.ReleaseReady(ctx, ticketKey, res.FolderName, res.PreviewURLs)
		}
		if nerr != nil {
			logger.Warn("notification", "error", nerr)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}

	if !res.Success {
		return errors.New("processing failed")
	}
	if uploadErr != nil {
		return fmt.Errorf("upload failed: %w", uploadErr)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
