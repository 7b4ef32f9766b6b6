package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name: "server and storage flags",
			args: []string{"-a", ":9090", "-d", "postgres://x", "-s", "k", "-t", "60", "-u", "u", "-p", "p", "-b", "b", "-g", "eu", "-e", "http://s3", "-l", "120"},
			expected: &Config{
				EndpointAddrGRPC:            ":9090",
				DatabaseDSN:                 "postgres://x",
				SecretKey:                   "k",
				AccessTokenValidityDuration: time.Hour,
				S3RootUser:                  "u",
				S3RootPassword:              "p",
				S3Bucket:                    "b",
				S3Region:                    "eu",
				S3BaseEndpoint:              "http://s3",
				PresignTTL:                  2 * time.Minute,
			},
		},
		{
			name:     "mint with unknown args around it",
			args:     []string{"serve", "-mint", "u1", "-x"},
			expected: &Config{MintUserID: "u1"},
		},
		{
			name:    "bad token validity",
			args:    []string{"-t", "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}
