package main

import (
	"go.uber.org/fx"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/config"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/logger"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/service"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/supabase"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/transport"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/validation"
)

func main() {
	fx.New(
		config.Module,
		logger.Module,
		validation.Module,
		supabase.Module,
		service.Module,
		transport.Module,
		fx.Invoke(func(*transport.HTTPServer) {}),
	).Run()
}
