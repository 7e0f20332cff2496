// Package emulatortest starts an in-memory emulator for tests.
package emulatortest

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/config"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/emulator"
)

const (
	AnonKey   = "test-anon-key"
	JWTSecret = "test-jwt-secret-with-at-least-32-characters"
)

type Emulator struct {
	*emulator.Server
	URL string
}

func New(t testing.TB) *Emulator {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open emulator database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("emulator sql handle: %v", err)
	}
	// one connection keeps the in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)
	if err := emulator.Migrate(db); err != nil {
		t.Fatalf("migrate emulator database: %v", err)
	}

	srv := emulator.New(db, emulator.Options{
		AnonKey:    AnonKey,
		JWTSecret:  JWTSecret,
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, zap.NewNop().Sugar())

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		_ = sqlDB.Close()
	})

	return &Emulator{Server: srv, URL: ts.URL}
}

// Config returns application settings pointing at the emulator.
func (e *Emulator) Config() *config.Config {
	return &config.Config{
		Host:            "127.0.0.1",
		Port:            "0",
		Env:             config.EnvDevelopment,
		SupabaseURL:     e.URL,
		SupabaseAnonKey: AnonKey,
	}
}

// MustRegister creates an auth user and fails the test on error.
func (e *Emulator) MustRegister(t testing.TB, email, password string) {
	t.Helper()
	if _, err := e.Register(email, password); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
}

// Links returns every stored link row.
func (e *Emulator) Links(t testing.TB) []emulator.Link {
	t.Helper()
	links := make([]emulator.Link, 0)
	if res := e.DB().Order("id").Find(&links); res.Error != nil {
		t.Fatalf("list links: %v", res.Error)
	}
	return links
}

// Templates returns every stored link template row.
func (e *Emulator) Templates(t testing.TB) []emulator.LinkTemplate {
	t.Helper()
	templates := make([]emulator.LinkTemplate, 0)
	if res := e.DB().Order("id").Find(&templates); res.Error != nil {
		t.Fatalf("list templates: %v", res.Error)
	}
	return templates
}
