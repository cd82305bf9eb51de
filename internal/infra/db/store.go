package db

import (
	"fmt"
	"log"

	"workseald/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB       *gorm.DB
	Packages *PackageRepository
}

// NewStore connects to postgres when a DSN is configured. Without one the
// service runs in no-db mode: sealing and opening work, storing does not.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; starting in no-db mode.")
		return &Store{Packages: NewPackageRepository(nil)}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := gdb.AutoMigrate(&PackageRecordModel{}); err != nil {
		return nil, fmt.Errorf("migrate package records: %w", err)
	}

	return &Store{DB: gdb, Packages: NewPackageRepository(gdb)}, nil
}
