package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
	"github.com/AlkaloidWells/GraphWork/internal/utils"
)

// RelationalService wraps the read-only connection to the behavioral source
// (view/buy/search logs plus the product catalog). The source is MySQL in
// the original deployment; Postgres is supported for mirrored copies.
type RelationalService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationalService(logg *logger.Logger) (*RelationalService, error) {
	serviceLog := logg.With("service", "RelationalService")

	driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "mysql", logg))
	host := utils.GetEnv("DB_HOST", "localhost", logg)
	port := utils.GetEnv("DB_PORT", defaultPort(driver), logg)
	user := utils.GetEnv("DB_USER", "root", logg)
	password := utils.GetEnv("DB_PASSWORD", "", logg)
	name := utils.GetEnv("DB_NAME", "shop", logg)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, password, host, port, name)
		dialector = mysql.Open(dsn)
	case "postgres":
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want mysql or postgres)", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s source: %w", driver, err)
	}

	return &RelationalService{db: db, log: serviceLog}, nil
}

func defaultPort(driver string) string {
	if driver == "postgres" {
		return "5432"
	}
	return "3306"
}

func (s *RelationalService) DB() *gorm.DB { return s.db }

func (s *RelationalService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *RelationalService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
