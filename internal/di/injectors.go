//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/widgetdeck/control-plane/internal/config"
)

func InitApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
