package main

import (
	"fmt"
	"net/url"

	"kasirinaja/backoffice/internal/config"
)

func validateConfig(cfg config.Config) error {
	switch cfg.SourceKind() {
	case config.SourceHTTP:
		if cfg.APIURL == "" {
			return fmt.Errorf("BACKOFFICE_API_URL must be set for the http source")
		}
		u, err := url.Parse(cfg.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("BACKOFFICE_API_URL must be an absolute http(s) URL")
		}
		if cfg.APIToken == "" {
			return fmt.Errorf("BACKOFFICE_API_TOKEN must be set for the http source")
		}
	case config.SourcePostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres source")
		}
	case config.SourceMemory:
	default:
		return fmt.Errorf("unknown source %q (must be http, postgres or memory)", cfg.SourceKind())
	}
	if cfg.TokenSecret != "" && len(cfg.TokenSecret) < 32 {
		return fmt.Errorf("BACKOFFICE_TOKEN_SECRET must be at least 32 characters when set")
	}
	return nil
}
