package cli

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/acl"
	"github.com/serroba/opsportal/internal/activity"
	"github.com/serroba/opsportal/internal/database"
	"github.com/serroba/opsportal/internal/drive"
	"github.com/serroba/opsportal/internal/user"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if !cfg.UsesDatabase() {
				return errors.New("database_dsn is not set")
			}

			db, err := database.Open(cfg.DatabaseDSN)
			if err != nil {
				return err
			}

			defer closeDB(db)

			return database.Migrate(cmd.Context(), migrators(db)...)
		},
	}
}

func migrators(db *gorm.DB) []database.Migrator {
	return []database.Migrator{
		user.NewGormStore(db),
		acl.NewGormStore(db),
		activity.NewGormStore(db),
		drive.NewGormStore(db),
	}
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}
