package config

// Config is the root configuration for mockmate.
type Config struct {
	Server  ServerConfig  `yaml:"server,omitempty"`
	Gemini  GeminiConfig  `yaml:"gemini,omitempty"`
	Google  GoogleConfig  `yaml:"google,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
	CookieSecret   string   `yaml:"cookieSecret,omitempty"` // HMAC key for browser sessions
}

// GeminiConfig configures the generative-AI endpoint.
type GeminiConfig struct {
	APIKey         string `yaml:"apiKey,omitempty"`
	Model          string `yaml:"model,omitempty"`
	BaseURL        string `yaml:"baseUrl,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// GoogleConfig configures the OAuth sign-in provider.
type GoogleConfig struct {
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"`
	RedirectURL  string `yaml:"redirectUrl,omitempty"`
}

// SessionConfig controls interview session persistence.
type SessionConfig struct {
	Store string `yaml:"store,omitempty"` // "sqlite" | "memory"
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // silent|error|warn|info|debug|trace
}
