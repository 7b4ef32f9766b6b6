package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/companion/internal/flagx"
)

var (
	valueFlags = []string{"-a", "-i", "-f", "-t", "-u", "-m", "-w", "-n", "-c", "-config", "--config"}
	boolFlags  = []string{"-e"}
)

// parseFlags overlays cfg with the config flags found in args and returns
// the remaining arguments. -c/-config are consumed here too; parseJson has
// already read them.
func parseFlags(cfg *Config, args []string) ([]string, error) {
	own, rest := flagx.SplitArgs(args, valueFlags, boolFlags)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the gateway")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "gateway access token")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "user id")
	fs.StringVar(&cfg.ImageDir, "m", cfg.ImageDir, "vision image directory")
	fs.IntVar(&cfg.PushConcurrency, "w", cfg.PushConcurrency, "max concurrent background pushes")
	fs.IntVar(&cfg.NotificationBudget, "n", cfg.NotificationBudget, "notifications per week")
	fs.BoolVar(&cfg.Encrypt, "e", cfg.Encrypt, "seal local records with a passphrase")
	var jsonPath string
	fs.StringVar(&jsonPath, "c", "", "config file")
	fs.StringVar(&jsonPath, "config", "", "config file")

	if err := fs.Parse(own); err != nil {
		return nil, err
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return rest, nil
}
