package config

type SecurityConfig interface {
	GetRateLimitPerMinute() int
	GetEnableRateLimiting() bool
}

type Security struct {
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE,default=60"`
}

var _ SecurityConfig = Security{}

func (s Security) GetRateLimitPerMinute() int {
	return s.RateLimitPerMinute
}

func (s Security) GetEnableRateLimiting() bool {
	return s.RateLimitPerMinute > 0
}
