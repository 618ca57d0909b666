package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/conorfennell/srsdb/internal/config"
	"github.com/conorfennell/srsdb/internal/logging"
	"github.com/conorfennell/srsdb/internal/search"
	"github.com/conorfennell/srsdb/internal/srs"
	"github.com/conorfennell/srsdb/internal/storage"
)

var configPath string

// app holds what every command works with once the root has started up.
var app struct {
	cfg    *config.Config
	log    zerolog.Logger
	db     *storage.DB
	engine *search.Engine
	sched  *srs.Scheduler
}

var rootCmd = &cobra.Command{
	Use:   "srsdb",
	Short: "A spaced-repetition flashcard datastore",
	Long: `srsdb stores notes, renders them into cards through model templates,
searches cards with a small query language and schedules reviews
from an interval table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}

		db, err := storage.Open(cfg.Database,
			storage.WithLogger(log.With().Str("component", "storage").Logger()),
			storage.WithIntervals(cfg.Review.Intervals))
		if err != nil {
			return err
		}
		log.Debug().Str("database", cfg.Database).Msg("database opened")

		app.cfg, app.log, app.db = cfg, log, db
		app.engine = search.New(db, search.WithLogger(log.With().Str("component", "search").Logger()))
		app.sched = srs.NewScheduler(db,
			srs.WithLogger(log.With().Str("component", "srs").Logger()),
			srs.WithDelays(cfg.Review.WrongDelay, cfg.Review.BuryDelay),
			srs.WithEasyCeiling(cfg.Review.EasyCeiling),
			srs.WithUndoWindow(cfg.Review.UndoWindow))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.db == nil {
			return nil
		}
		return app.db.Close()
	},
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file (default ./"+config.DefaultFile+" when present)")
	flags.String("db", "", "path to the SQLite database")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "console or json")
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseWhen reads the --in and --at flags of wrong and bury.
func parseWhen(in, at string) (srs.When, error) {
	switch {
	case in != "" && at != "":
		return srs.When{}, fmt.Errorf("--in and --at are exclusive")
	case in != "":
		d, err := str2duration.ParseDuration(in)
		if err != nil {
			return srs.When{}, fmt.Errorf("invalid --in: %w", err)
		}
		return srs.After(d), nil
	case at != "":
		t, err := dateparse.ParseLocal(at)
		if err != nil {
			return srs.When{}, fmt.Errorf("invalid --at: %w", err)
		}
		return srs.At(t), nil
	}
	return srs.When{}, nil
}

func parseIntervals(s string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(s, ",") {
		d, err := str2duration.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", part, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func humanTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", humanize.Time(*t), t.Local().Format(time.DateTime))
}
