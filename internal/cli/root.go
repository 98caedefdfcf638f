// Package cli is the skureview command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/leca/skureview/internal/api"
	"github.com/leca/skureview/internal/config"
	"github.com/leca/skureview/internal/database"
	"github.com/leca/skureview/internal/session"
	"github.com/leca/skureview/internal/storage"
)

// errNotLoggedIn is returned by commands that need an identity.
var errNotLoggedIn = errors.New("not logged in; run `skureview login <email>` first")

// app holds what every command shares. It is filled in by the root
// command's pre-run hook.
type app struct {
	configPath string
	logLevel   string

	cfg      *config.Config
	logger   *slog.Logger
	db       database.Database
	client   *api.Client
	sessions *session.Store
	store    *storage.FileSystem
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "skureview",
		Short: "Review SKU images against the image validation backend",
		Long: `skureview uploads product metadata and images to the validation backend,
then lets an operator walk through each SKU approving or rejecting its
images, assigning display order and notes, and exporting the results.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file (default $SKUREVIEW_CONFIG)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	cmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newUploadCmd(a),
		newSKUsCmd(a),
		newImagesCmd(a),
		newReviewCmd(a),
		newExportCmd(a),
		newURLCmd(a),
	)

	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(a.logger)

	db, err := database.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	a.db = db

	a.client = api.NewClient(cfg.APIURL, cfg.AssetURL, api.WithLogger(a.logger), api.WithTimeout(cfg.Timeout()))
	a.sessions = session.New(a.client, a.db, a.logger)
	a.store = storage.NewFileSystem(cfg.DownloadDir)

	if _, err := a.sessions.Restore(); err != nil {
		return err
	}
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// identity returns the logged-in operator or errNotLoggedIn.
func (a *app) identity() (string, error) {
	id := a.sessions.Identity()
	if id == "" {
		return "", errNotLoggedIn
	}
	return id, nil
}

// userError converts an error into the short message shown to the operator.
func userError(err error) error {
	if err == nil {
		return nil
	}
	if api.KindOf(err) == api.KindUnknown {
		return err
	}
	return errors.New(api.UserMessage(err))
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
