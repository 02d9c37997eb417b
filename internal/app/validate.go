package app

import (
	"fmt"

	"alumnichat/pkg/config"
)

// validateConfig runs the checks that only matter to a running server, on
// top of config.ValidateConfig.
func validateConfig(eff config.EffectiveConfigResult) error {
	if err := config.ValidateConfig(eff); err != nil {
		return err
	}
	cfg := eff.Config
	if cfg.Chat.MaxBodyBytes.Int64() > cfg.Attachments.MaxSize.Int64() {
		return fmt.Errorf("chat.max_body_bytes (%s) must not exceed attachments.max_size (%s)", cfg.Chat.MaxBodyBytes, cfg.Attachments.MaxSize)
	}
	if len(cfg.Server.APIKeys.Backend) == 0 && len(cfg.Server.APIKeys.Frontend) == 0 {
		return fmt.Errorf("no api keys configured: set server.api_keys.backend or server.api_keys.frontend")
	}
	return nil
}
