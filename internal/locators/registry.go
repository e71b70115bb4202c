package locators

import (
	"fmt"
	"log/slog"

	"kura/internal/candidate"
	"kura/internal/config"
	"kura/internal/locators/dlsite"
	"kura/internal/locators/vndb"
	"kura/internal/services"
)

// Build returns a registry holding the locators enabled in cfg, in the order
// they are listed.
func Build(cfg *config.Config, logger *slog.Logger) (*candidate.Registry, error) {
	var list []candidate.Locator
	for _, name := range cfg.Locators.Enabled {
		switch name {
		case dlsite.Name:
			list = append(list, dlsite.New(cfg, nil, logger))
		case vndb.Name:
			list = append(list, vndb.New(cfg, nil, logger))
		default:
			return nil, services.Wrap(services.ErrConfiguration, "locators", "build", fmt.Sprintf("unknown locator %q", name), nil)
		}
	}
	return candidate.NewRegistry(list...), nil
}
