// Package config loads runtime configuration for the companion CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the companion gateway; empty runs offline
//	-i int      online status check interval (seconds)
//	-f string   path of the local SQLite database
//	-t string   gateway access token
//	-u string   user id; keys the user-state record and blob paths
//	-m string   directory for downloaded vision images
//	-w int      maximum concurrent background pushes
//	-n int      notifications allowed per week
//	-e          seal local records with a passphrase
//
// Config flags may appear anywhere on the command line; LoadConfig returns
// the arguments it did not consume so the command parser sees only its own.
//
// # JSON schema
//
// Durations use timex.Duration ("3s" or integer nanoseconds). Zero values
// leave the default in place.
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "database_path": "companion.db",
//	  "access_token": "",
//	  "user_id": "",
//	  "image_dir": "images",
//	  "push_concurrency": 8,
//	  "notification_budget": 3,
//	  "week_start": "monday",
//	  "encrypt": false
//	}
package config
