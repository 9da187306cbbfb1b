package config

// RedactedConfig returns a copy of cfg with credentials replaced by the
// placeholder "***", safe to log or print.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Slices and range pointers are copied so the redacted value shares no
	// mutable state with cfg.
	out.Notify.Events = cloneStrings(cfg.Notify.Events)
	out.Server.CORSOrigins = cloneStrings(cfg.Server.CORSOrigins)
	out.Filters.Domains = cloneStrings(cfg.Filters.Domains)
	out.Filters.Liquidity = cloneRange(cfg.Filters.Liquidity)
	out.Filters.Volume24h = cloneRange(cfg.Filters.Volume24h)
	out.Filters.Spread = cloneRange(cfg.Filters.Spread)
	out.Filters.TimeToResolution = cloneRange(cfg.Filters.TimeToResolution)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
