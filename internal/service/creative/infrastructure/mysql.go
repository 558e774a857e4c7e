// internal/service/creative/infrastructure/mysql.go
package infrastructure

import (
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"adforge/internal/pkg/logger"
)

// NewDB opens the MySQL connection and migrates the tables this context
// owns. The product tables belong to the catalog context; they are migrated
// here too so a single-binary deployment works out of the box.
func NewDB(dsn string) (*gorm.DB, error) {
	// Validate the DSN up front: gorm's error for a malformed DSN is
	// indistinguishable from a connection failure.
	if _, err := mysqldriver.ParseDSN(dsn); err != nil {
		return nil, errors.Wrap(err, "invalid mysql dsn")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&AdRunModel{},
		&GeneratedAdModel{},
		&HookModel{},
		&ProductModel{},
		&ProductImageModel{},
	); err != nil {
		return nil, err
	}
	logger.Logger.Info().Str("component", "mysql").Msg("Database migrated")
	return db, nil
}
