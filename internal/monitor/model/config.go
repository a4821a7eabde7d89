package model

// ================ Config ================

// VisionModelConfig drives the image-understanding model (classification
// and reading extraction).
type VisionModelConfig struct {
	Model       string  `envconfig:"VISION_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"VISION_MAX_TOKENS" default:"1000"`
	Temperature float32 `envconfig:"VISION_TEMPERATURE" default:"0.2"`
}

// AgentModelConfig drives the query agent's reasoning model.
type AgentModelConfig struct {
	Model       string  `envconfig:"AGENT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"AGENT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0.3"`
}

// AgentConfig bounds the reasoning/tool-dispatch loop.
type AgentConfig struct {
	MaxTurns int `envconfig:"AGENT_MAX_TURNS" default:"8"`
}

// RetryConfig is shared by all external-call sites.
type RetryConfig struct {
	MaxAttempts int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	BaseDelayMS int `envconfig:"RETRY_BASE_DELAY_MS" default:"500"`
}

// PriceFeedConfig configures the reference electricity price tool.
type PriceFeedConfig struct {
	URL              string  `envconfig:"PRICE_FEED_URL"`
	CacheTTL         string  `envconfig:"PRICE_CACHE_TTL" default:"24h"`
	FallbackPerKWh   float64 `envconfig:"PRICE_FALLBACK_EUR_KWH" default:"0.20"`
	RequestTimeoutMS int     `envconfig:"PRICE_REQUEST_TIMEOUT_MS" default:"5000"`
}
