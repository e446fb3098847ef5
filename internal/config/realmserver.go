package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RealmServer holds all configuration for the realm server (C4).
type RealmServer struct {
	// Client-facing network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// LoginServer uplink (C3)
	LoginHost     string `yaml:"login_host"`
	LoginPort     int    `yaml:"login_port"`
	InternalName  string `yaml:"internal_name"`
	VisibleName   string `yaml:"visible_name"`
	UplinkPassword string `yaml:"uplink_password"`
	RealmID       int32  `yaml:"realm_id"`

	// World-node listener (C5)
	WorldLinkBindAddress string `yaml:"worldlink_bind_address"`
	WorldLinkPort        int    `yaml:"worldlink_port"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Timeouts
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	ClientIdleTimeout time.Duration `yaml:"client_idle_timeout"`
	UplinkKeepAlive   time.Duration `yaml:"uplink_keep_alive"`
	SendQueueSize int           `yaml:"send_queue_size"`

	// Flood protection
	FloodProtection      bool `yaml:"flood_protection"`
	FastConnectionLimit  int  `yaml:"fast_connection_limit"`
	NormalConnectionTime int  `yaml:"normal_connection_time"`
	FastConnectionTime   int  `yaml:"fast_connection_time"`
	MaxConnectionPerIP   int  `yaml:"max_connection_per_ip"`

	// Who command
	WhoRequestCooldown time.Duration `yaml:"who_request_cooldown"`
	MaxWhoZoneFilters   int          `yaml:"max_who_zone_filters"`
	MaxWhoStringFilters int          `yaml:"max_who_string_filters"`

	// Characters
	MaxCharactersPerAccount int `yaml:"max_characters_per_account"`
}

// DefaultRealmServer returns RealmServer config with sensible defaults.
func DefaultRealmServer() RealmServer {
	return RealmServer{
		BindAddress:           "0.0.0.0",
		Port:                  7777,
		LoginHost:             "127.0.0.1",
		LoginPort:             9014,
		InternalName:          "realm-1",
		VisibleName:           "Realm One",
		UplinkPassword:        "change-me",
		RealmID:               1,
		WorldLinkBindAddress:  "0.0.0.0",
		WorldLinkPort:         9015,
		LogLevel:              "info",
		WriteTimeout:          5 * time.Second,
		ClientIdleTimeout:     60 * time.Second,
		UplinkKeepAlive:       30 * time.Second,
		SendQueueSize:         256,
		FloodProtection:       true,
		FastConnectionLimit:   15,
		NormalConnectionTime:  700,
		FastConnectionTime:    350,
		MaxConnectionPerIP:    50,
		WhoRequestCooldown:    6 * time.Second,
		MaxWhoZoneFilters:     10,
		MaxWhoStringFilters:   4,
		MaxCharactersPerAccount: 11,
		Database: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    5432,
			User:    "realmbroker",
			Password: "realmbroker",
			DBName:  "realmbroker",
			SSLMode: "disable",
		},
	}
}

// LoadRealmServer loads realm server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadRealmServer(path string) (RealmServer, error) {
	cfg := DefaultRealmServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
