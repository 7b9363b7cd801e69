package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/access"
	"github.com/serroba/opsportal/internal/acl"
	"github.com/serroba/opsportal/internal/activity"
	"github.com/serroba/opsportal/internal/api"
	"github.com/serroba/opsportal/internal/blob"
	"github.com/serroba/opsportal/internal/config"
	"github.com/serroba/opsportal/internal/database"
	"github.com/serroba/opsportal/internal/drive"
	"github.com/serroba/opsportal/internal/events"
	"github.com/serroba/opsportal/internal/user"
	"github.com/serroba/opsportal/internal/ws"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the portal HTTP server. Without database_dsn every store is kept
in memory and lost on exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return runServe(cfg)
		},
	}
}

type stores struct {
	users    user.Store
	perms    acl.Store
	activity activity.Store
	drive    drive.Store
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if !cfg.UsesDatabase() {
		log.Warn().Msg("No database_dsn configured, using in-memory stores")

		return stores{
			users:    user.NewMemoryStore(),
			perms:    acl.NewMemoryStore(),
			activity: activity.NewMemoryStore(),
			drive:    drive.NewMemoryStore(),
			close:    func() {},
		}, nil
	}

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		return stores{}, err
	}

	if err := database.Migrate(ctx, migrators(db)...); err != nil {
		closeDB(db)

		return stores{}, err
	}

	return stores{
		users:    user.NewGormStore(db),
		perms:    acl.NewGormStore(db),
		activity: activity.NewGormStore(db),
		drive:    drive.NewGormStore(db),
		close:    func() { closeDB(db) },
	}, nil
}

func seedUsers(ctx context.Context, store user.Store, cfg *config.Config) error {
	if len(cfg.Users) == 0 {
		if !cfg.UsesDatabase() {
			log.Warn().Msg("No users configured, every guarded route will be denied")
		}

		return nil
	}

	users := make([]user.User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		users = append(users, user.User{ID: u.ID, Username: u.Username, Email: u.Email, Roles: u.Roles})
	}

	created, err := user.Seed(ctx, store, users)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	log.Info().Int("created", created).Int("configured", len(users)).Msg("Seeded users")

	return nil
}

// notifiers builds the drive event fanout. With redis configured, local
// clients are reached through the relay instead of the hub directly, and
// the client is returned so the caller can run the relay and close it.
func notifiers(cfg *config.Config, hub *ws.Hub) (events.Fanout, *redis.Client, error) {
	var fanout events.Fanout

	if cfg.EventsURL != "" {
		fanout = append(fanout, events.NewHTTPNotifier(events.HTTPNotifierConfig{
			URL:     cfg.EventsURL,
			Timeout: cfg.NotifyTimeout,
		}))
	}

	if cfg.RedisURL == "" {
		return append(fanout, events.NewHubNotifier(hub)), nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis_url: %w", err)
	}

	client := redis.NewClient(opts)

	return append(fanout, events.NewRedisNotifier(client, cfg.RedisChannel)), client, nil
}

func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}

	defer st.close()

	if err := seedUsers(ctx, st.users, cfg); err != nil {
		return err
	}

	hub := ws.NewHub()

	fanout, rdb, err := notifiers(cfg, hub)
	if err != nil {
		return err
	}

	if rdb != nil {
		defer func() { _ = rdb.Close() }()

		relay := events.NewRelay(rdb, cfg.RedisChannel, events.NewHubNotifier(hub))

		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Drive event relay stopped")
			}
		}()
	}

	recorder := activity.NewRecorder(activity.RecorderConfig{Store: st.activity})

	server := api.NewServer(api.ServerConfig{
		Checker: access.NewChecker(access.CheckerConfig{
			Users:    st.users,
			Perms:    st.perms,
			Recorder: recorder,
		}),
		Admin: acl.NewAdmin(acl.AdminConfig{Store: st.perms, Recorder: recorder}),
		Drive: drive.NewManager(drive.ManagerConfig{
			Store:    st.drive,
			Blobs:    blob.NewDiskStore(cfg.UploadDir),
			Users:    st.users,
			Recorder: recorder,
			Notifier: fanout,
		}),
		Activity: st.activity,
		Hub:      hub,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("address", cfg.HTTPAddress).Msg("Starting server")

		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	log.Info().Msg("Server stopped")

	return nil
}
