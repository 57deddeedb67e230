package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

var upMigrationFile = regexp.MustCompile(`^(\d+)_.*\.up\.sql$`)

// MigrationLogger adapts an ectologger to the migrate.Logger interface
type MigrationLogger struct {
	ectologger.Logger
}

func (l MigrationLogger) Verbose() bool {
	return true
}

func (l MigrationLogger) Printf(format string, v ...any) {
	l.Debugf(format, v...)
}

type MigrationConfig struct {
	MigrationFolderPath string
	Version             uint // 0 migrates to the latest version
	Force               int  // non-zero forces the version before migrating
	AutoRollback        bool // on a dirty failure, force back to the previous version
}

type MigrationService struct {
	config *MigrationConfig
	logger ectologger.Logger
}

func NewMigrationService(logger ectologger.Logger, config *MigrationConfig) *MigrationService {
	return &MigrationService{
		config: config,
		logger: logger,
	}
}

// folder resolves the migration folder as given, then relative to the
// working directory.
func (ms *MigrationService) folder() (string, error) {
	path := ms.config.MigrationFolderPath
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "resolving working directory")
	}
	joined := filepath.Join(wd, path)
	if _, err := os.Stat(joined); err != nil {
		return "", errors.Wrapf(err, "migration folder %s does not exist", path)
	}
	return joined, nil
}

// MigratePostgres applies the migration folder to a postgres pool
func (ms *MigrationService) MigratePostgres(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		ms.logger.WithError(err).Error("Failed to create postgres migration driver")
		return errors.Wrap(err, "creating postgres migration driver")
	}
	return ms.Migrate("postgres", driver)
}

func (ms *MigrationService) Migrate(databaseName string, driver database.Driver) error {
	folder, err := ms.folder()
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+folder, databaseName, driver)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to create migrate instance")
		return errors.Wrap(err, "creating migrate instance")
	}
	m.Log = MigrationLogger{Logger: ms.logger}

	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			ms.logger.WithError(err).Errorf("Failed to force database to version %d", ms.config.Force)
			return errors.Wrapf(err, "forcing version %d", ms.config.Force)
		}
	}

	previous, _, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		ms.logger.WithError(err).Warn("Failed to read current migration version")
	}

	if ms.config.Version != 0 {
		err = m.Migrate(ms.config.Version)
	} else {
		err = m.Up()
	}
	return ms.finish(m, folder, previous, err)
}

func (ms *MigrationService) finish(m *migrate.Migrate, folder string, previous uint, err error) error {
	switch {
	case err == nil:
		version, _, _ := m.Version()
		ms.logger.WithField("version", version).Info("Applied migrations")
		return nil
	case err == migrate.ErrNoChange:
		ms.logger.WithField("version", previous).Info("No new migrations to apply")
		return nil
	}

	if isMissingVersion(err) {
		latest, latestErr := LatestVersion(folder)
		if latestErr != nil {
			return errors.Wrap(latestErr, "reading latest migration version")
		}
		ms.logger.Warnf("Database version %d has no migration file, forcing version %d", previous, latest)
		return errors.Wrapf(m.Force(latest), "forcing version %d", latest)
	}

	version, dirty, versionErr := m.Version()
	ms.logger.WithError(err).WithFields(map[string]any{
		"version": version,
		"dirty":   dirty,
	}).Error("Failed to apply migrations")

	if ms.config.AutoRollback && dirty && versionErr == nil {
		target := previous
		if target == 0 && version > 0 {
			target = version - 1
		}
		ms.logger.Warnf("Reverting dirty version %d to %d", version, target)
		if forceErr := m.Force(int(target)); forceErr != nil {
			return errors.Wrapf(forceErr, "forcing version %d", target)
		}
	}
	return errors.Wrap(err, "applying migrations")
}

// isMissingVersion reports a database version with no file in the folder,
// which happens after a rollback deploy.
func isMissingVersion(err error) bool {
	return errors.Is(err, os.ErrNotExist) || strings.Contains(err.Error(), "no migration found for version")
}

// LatestVersion returns the highest up-migration version in folder
func LatestVersion(folder string) (int, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0, err
	}

	latest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := upMigrationFile.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		v, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, err
		}
		if v > latest {
			latest = v
		}
	}

	if latest == 0 {
		return 0, errors.New("no migration files found")
	}
	return latest, nil
}
