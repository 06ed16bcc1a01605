package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/five82/pase/internal/backend"
	"github.com/five82/pase/internal/config"
	"github.com/five82/pase/internal/feed"
	"github.com/five82/pase/internal/kitchen"
	"github.com/five82/pase/internal/logging"
	"github.com/five82/pase/internal/prefs"
	"github.com/five82/pase/internal/report"
	"github.com/five82/pase/internal/store"
	"github.com/five82/pase/internal/ui"
)

// Options configure the pase application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/pase/prefs.toml
	PollEvery  int    // seconds; zero keeps the saved preference
}

// Run boots the kitchen board until the user quits or the context is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closer, err := logging.Setup(logging.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	userPrefs := loadPrefs(opts.PrefsPath, opts.PollEvery)

	client, err := backend.NewClient(cfg.APIURL, log)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	day := func() string { return cfg.BusinessDay(time.Now()) }
	clientID := uuid.NewString()
	log.WithFields(logrus.Fields{
		"api":    client.BaseURL(),
		"nats":   cfg.NATSURL,
		"day":    day(),
		"client": clientID,
	}).Info("pase starting")

	st := store.New()
	adapter := feed.New(feed.Options{
		Dialer: feed.NATSDialer{
			URL:      cfg.NATSURL,
			Prefix:   cfg.SubjectPrefix,
			ClientID: clientID,
		},
		Fetcher: client,
		Store:   st,
		Day:     day,
		Log:     log,
	})
	st.OnRefreshNeeded(adapter.RefreshOrder)

	toasts := ui.NewToasts()
	agg := kitchen.NewAggregator(client, log)
	svc := kitchen.NewService(kitchen.Options{
		API:        client,
		Store:      st,
		Notifier:   toasts,
		Log:        log,
		Day:        day,
		Actor:      cfg.Actor,
		Refresh:    adapter.Refresh,
		Aggregator: agg,
	})
	reports := report.Source{API: client, Day: day, Dir: cfg.ReportDir}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	adapter.Start(gctx)
	defer adapter.Close()

	g.Go(func() error {
		agg.Watch(gctx, st)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return ui.Run(ui.Options{
			Context:   gctx,
			Store:     st,
			Kitchen:   svc,
			Reports:   reports,
			Prefs:     userPrefs,
			PrefsPath: opts.PrefsPath,
			Toasts:    toasts,
			Day:       day,
			Bell:      os.Stderr,
			Log:       log,
			LogPath:   cfg.LogPath,
		})
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("board exited with error")
		return err
	}
	log.Info("pase stopped")
	return nil
}

// loadPrefs reads the saved preferences and applies a command line poll
// override. An override outside the accepted intervals resets the poll
// interval to the default, as any invalid saved value does.
func loadPrefs(path string, pollEvery int) prefs.Prefs {
	p, _ := prefs.Load(path)
	if pollEvery > 0 {
		p.PollIntervalSeconds = pollEvery
	}
	return p.Normalize()
}
