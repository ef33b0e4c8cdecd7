package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/supabase-community/supabase-go"
	"github.com/unowned-ai/wayfarer/pkg/auth"
	"github.com/unowned-ai/wayfarer/pkg/config"
	"github.com/unowned-ai/wayfarer/pkg/db"
	"github.com/unowned-ai/wayfarer/pkg/geo"
	"github.com/unowned-ai/wayfarer/pkg/images"
	"github.com/unowned-ai/wayfarer/pkg/localstore"
	"github.com/unowned-ai/wayfarer/pkg/memories"
	"github.com/unowned-ai/wayfarer/pkg/metrics"
	"github.com/unowned-ai/wayfarer/pkg/remote"
	"github.com/unowned-ai/wayfarer/pkg/utils"
	"go.uber.org/zap"
)

// Services is everything a front end needs, wired from one Config.
type Services struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Collector
	DB          *sql.DB
	Local       *localstore.Store
	Remote      *remote.Store // nil in local mode
	Store       memories.Store
	Auth        auth.Authenticator
	Uploader    *images.Uploader
	Geocoder    geo.Geocoder
	Coordinator *Coordinator

	closers []func()
}

// Mode names the active backend for status output.
func (s *Services) Mode() string {
	if s.Remote != nil {
		return "remote"
	}
	return "local"
}

// Bootstrap opens the local database and picks the backend once: the
// hosted store when it is configured, the local store otherwise.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Services{Config: cfg, Logger: logger, Metrics: metrics.NewCollector()}

	dbPath, err := utils.ResolveAndEnsureDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(dbPath, true, "NORMAL", cfg.LocalQuotaBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database '%s': %w", dbPath, err)
	}
	s.DB = conn
	s.closers = append(s.closers, func() { conn.Close() })
	s.Local = localstore.New(db.NewKV(conn), logger.Named("localstore"))

	if cfg.RemoteConfigured() {
		if err := s.wireRemote(ctx); err != nil {
			s.Close()
			return nil, err
		}
	} else {
		logger.Info("remote store not configured, using local storage", zap.String("db", dbPath))
		s.Store = s.Local
		s.Auth = auth.NewStaticAuth(cfg.FallbackPassword)
	}

	s.Uploader = images.NewUploader(images.Config{
		CloudName:    cfg.CloudinaryCloudName,
		UploadPreset: cfg.CloudinaryUploadPreset,
	}, logger.Named("images"), s.Metrics)
	if !s.Uploader.Configured() {
		logger.Info("image host not configured, photos will be stored inline")
	}
	s.Geocoder = geo.NewNominatimGeocoder(cfg.NominatimServer, logger.Named("geo"))

	s.Coordinator = New(Deps{
		Store:       s.Store,
		Auth:        s.Auth,
		Uploader:    s.Uploader,
		Geocoder:    s.Geocoder,
		Logger:      logger.Named("app"),
		RequireAuth: s.Auth.Configured(),
	})
	s.closers = append(s.closers, s.Coordinator.Close)
	return s, nil
}

func (s *Services) wireRemote(ctx context.Context) error {
	cfg := s.Config
	sc, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	if err != nil {
		return fmt.Errorf("failed to create supabase client: %w", err)
	}
	client := remote.NewClient(sc)

	opts := []remote.Option{
		remote.WithLogger(s.Logger.Named("remote")),
		remote.WithMetrics(s.Metrics),
	}
	if cfg.DatabaseURL != "" {
		feed, err := remote.NewFeed(cfg.DatabaseURL, s.Logger.Named("feed"))
		if err != nil {
			return err
		}
		opts = append(opts, remote.WithFeed(feed))
	}

	s.Remote = remote.New(remote.NewPostgrestTable(client, remote.DefaultTable), s.Local, opts...)
	s.Remote.Watch(ctx)
	s.closers = append(s.closers, s.Remote.Close)
	s.Store = s.Remote

	supa := auth.NewSupabaseAuth(auth.NewSupabaseProvider(client, cfg.SupabaseAnonKey), cfg.AuthEmail, s.Logger.Named("auth"))
	supa.Watch(ctx)
	s.closers = append(s.closers, supa.Close)
	s.Auth = supa

	s.Logger.Info("using remote store", zap.String("url", cfg.SupabaseURL), zap.Bool("realtime", cfg.DatabaseURL != ""))
	return nil
}

// Close releases everything Bootstrap opened, in reverse order.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
