package store

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func postgresOpen(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}
