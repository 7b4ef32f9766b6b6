package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/companion/internal/flagx"
	"github.com/dmitrijs2005/companion/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DatabasePath        string         `json:"database_path"`
	AccessToken         string         `json:"access_token"`
	UserID              string         `json:"user_id"`
	ImageDir            string         `json:"image_dir"`
	PushConcurrency     int            `json:"push_concurrency"`
	NotificationBudget  int            `json:"notification_budget"`
	WeekStart           string         `json:"week_start"`
	Encrypt             bool           `json:"encrypt"`
}

// parseJson overlays cfg with the file named by -c/-config in args. Without
// such a flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.UserID, jc.UserID)
	setString(&cfg.ImageDir, jc.ImageDir)
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.PushConcurrency > 0 {
		cfg.PushConcurrency = jc.PushConcurrency
	}
	if jc.NotificationBudget > 0 {
		cfg.NotificationBudget = jc.NotificationBudget
	}
	cfg.WeekStart = timex.ParseWeekday(jc.WeekStart, cfg.WeekStart)
	cfg.Encrypt = cfg.Encrypt || jc.Encrypt
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
