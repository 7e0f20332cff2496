package emulator

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64    `gorm:"primarykey" json:"id"`
		CreatedAt time.Time `json:"created_at"`
	}

	AuthUser struct {
		ID                string `gorm:"primarykey"`
		Email             string `gorm:"unique;not null"`
		EncryptedPassword string `gorm:"not null"`
		CreatedAt         time.Time
	}

	AuthSession struct {
		ID           string `gorm:"primarykey"`
		UserID       string `gorm:"not null;index"`
		RefreshToken string `gorm:"unique;not null"`
		Revoked      bool   `gorm:"not null;default:false"`
		CreatedAt    time.Time
	}

	User struct {
		ID        string  `gorm:"primarykey" json:"id"`
		Email     string  `gorm:"unique;not null" json:"email"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}

	Link struct {
		GormForkedModel
		UserEmail string `gorm:"not null;index" json:"user_email"`
		LinkGroup string `gorm:"not null" json:"link_group"`
		Link      string `gorm:"not null" json:"link"`
	}

	LinkTemplate struct {
		GormForkedModel
		UserEmail string `gorm:"not null;uniqueIndex:uidx_user_email_link_group" json:"user_email"`
		LinkGroup string `gorm:"not null;uniqueIndex:uidx_user_email_link_group" json:"link_group"`
		Template  string `gorm:"not null" json:"template"`
	}
)

// NewGormClient opens the emulator storage and migrates its schema.
func NewGormClient(cfg *config.EmulatorConfig, l *zap.SugaredLogger) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.Env == config.EnvDevelopment {
		level = logger.Info
	}
	newLogger := logger.New(zap.NewStdLog(l.Desugar()), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		dialector = sqlite.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&AuthUser{}, &AuthSession{}); err != nil {
		return errors.Wrap(err, "migrate auth")
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		return errors.Wrap(err, "migrate user")
	}
	if err := db.AutoMigrate(&Link{}); err != nil {
		return errors.Wrap(err, "migrate link")
	}
	if err := db.AutoMigrate(&LinkTemplate{}); err != nil {
		return errors.Wrap(err, "migrate link template")
	}
	return nil
}
