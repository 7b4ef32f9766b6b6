package config

import "time"

// Config holds runtime settings for the companion CLI.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DatabasePath        string
	AccessToken         string
	UserID              string
	ImageDir            string
	PushConcurrency     int
	NotificationBudget  int
	WeekStart           time.Weekday
	Encrypt             bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "companion.db"
	c.ImageDir = "images"
	c.PushConcurrency = 8
	c.NotificationBudget = 3
	c.WeekStart = time.Monday
}

// LoadConfig applies defaults, then the JSON file named by -c/-config (if
// any), then flags. It returns the arguments that are not config flags.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}
