//go:build functional

package test_functional

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Host        string `mapstructure:"HOST"`
		Port        string `mapstructure:"PORT"`
		EmulatorURL string `mapstructure:"EMULATOR_URL"`
		AnonKey     string `mapstructure:"ANON_KEY"`
	}
)

var (
	AppBaseURL  url.URL
	EmulatorURL string
	AnonKey     string
)

func TestMain(m *testing.M) {
	viper.SetEnvPrefix("TEST_RUNNER")

	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "3000")
	viper.SetDefault("EMULATOR_URL", "http://0.0.0.0:54321")
	viper.SetDefault("ANON_KEY", "anon-key")

	envs := []string{"HOST", "PORT", "EMULATOR_URL", "ANON_KEY"}
	for _, key := range envs {
		if err := viper.BindEnv(key); err != nil {
			panic(err)
		}
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	fmt.Println(cfg)

	AppBaseURL = url.URL{
		Scheme: "http",
		Host:   cfg.Host + ":" + cfg.Port,
	}
	EmulatorURL = cfg.EmulatorURL
	AnonKey = cfg.AnonKey

	////////

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)

	cl := resty.New()
	pingURL := AppBaseURL
	pingURL.Path = "/ping"
	for _, u := range []string{pingURL.String(), EmulatorURL + "/ping"} {
		for {
			if pingCtx.Err() != nil {
				panic(pingCtx.Err())
			}
			resp, err := cl.R().SetContext(pingCtx).Get(u)
			if err == nil && resp.String() == "pong" {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
	cancel()

	fmt.Println("pinged successfully")

	///////

	os.Exit(m.Run())
}
