package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "dev",
		Environments:       map[string]EnvironmentConfig{},
		SessionCookieName:  "",
		Timeout:            30000, // 30 seconds
		FollowRedirects:    BoolPtr(true),
		MaxRedirects:       10,
		ValidateSSL:        BoolPtr(true),
		Proxy:              "",
		Headers:            nil,
		CookieStore:        "",
		LogLevel:           "warn",
		LogDevelopment:     BoolPtr(false),
		NoColor:            BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEnvironment == defaults.DefaultEnvironment &&
		len(c.Environments) == 0 &&
		c.SessionCookieName == defaults.SessionCookieName &&
		c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == defaults.Proxy &&
		len(c.Headers) == 0 &&
		c.CookieStore == defaults.CookieStore &&
		c.LogLevel == defaults.LogLevel &&
		c.GetLogDevelopment() == defaults.GetLogDevelopment() &&
		c.GetNoColor() == defaults.GetNoColor()
}
