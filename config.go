package main

import (
	"strconv"
	"time"

	"github.com/horgh/config"
	"github.com/pkg/errors"
)

// Config holds a server's configuration.
type Config struct {
	ListenHost string
	ListenPort string
	ServerName string
	ServerInfo string
	Version    string
	MOTD       string

	AdminLocation string
	AdminEmail    string

	// Password clients must present with PASS before they can register.
	Password string

	// Maximum number of simultaneous client connections.
	MaxClients int

	// Period of time to wait before waking server up (maximum).
	WakeupTime time.Duration

	// Period of time a client can be idle before we send it a PING.
	PingTime time.Duration

	// Period of time a client can be idle before we consider it dead.
	DeadTime time.Duration
}

// defaultConfig is the configuration the server runs with when no config
// file overrides it. The listen port and the password always come from the
// command line.
func defaultConfig() Config {
	return Config{
		ListenHost:    "0.0.0.0",
		ServerName:    "minnow.localhost",
		ServerInfo:    "minnow IRC server",
		Version:       "minnow-1.0",
		MOTD:          "Welcome to minnow.",
		AdminLocation: "The Internet",
		AdminEmail:    "admin@minnow.localhost",
		MaxClients:    100,
		WakeupTime:    time.Second,
		PingTime:      30 * time.Second,
		DeadTime:      240 * time.Second,
	}
}

// checkAndParseConfig builds the server's configuration: defaults, then the
// command line, then any config file keys on top. Every file key is
// optional.
func checkAndParseConfig(args Args) (Config, error) {
	c := defaultConfig()
	c.ListenPort = strconv.Itoa(args.Port)
	c.Password = args.Password

	if args.ConfigFile == "" {
		return c, nil
	}

	configMap, err := config.ReadStringMap(args.ConfigFile)
	if err != nil {
		return Config{}, errors.Wrap(err, "unable to read config file")
	}

	for key, value := range configMap {
		// A blank motd is meaningful. It turns the MOTD block into a 422.
		if len(value) == 0 && key != "motd" {
			return Config{}, errors.Errorf("configuration value is blank: %s",
				key)
		}

		switch key {
		case "listen-host":
			c.ListenHost = value
		case "server-name":
			c.ServerName = value
		case "server-info":
			c.ServerInfo = value
		case "motd":
			c.MOTD = value
		case "admin-location":
			c.AdminLocation = value
		case "admin-email":
			c.AdminEmail = value
		case "max-clients":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Config{}, errors.Errorf("max-clients is not valid: %s",
					value)
			}
			c.MaxClients = n
		case "wakeup-time":
			c.WakeupTime, err = time.ParseDuration(value)
			if err != nil {
				return Config{}, errors.Wrap(err, "wakeup-time is in invalid format")
			}
		case "ping-time":
			c.PingTime, err = time.ParseDuration(value)
			if err != nil {
				return Config{}, errors.Wrap(err, "ping-time is in invalid format")
			}
		case "dead-time":
			c.DeadTime, err = time.ParseDuration(value)
			if err != nil {
				return Config{}, errors.Wrap(err, "dead-time is in invalid format")
			}
		default:
			return Config{}, errors.Errorf("unknown configuration key: %s", key)
		}
	}

	return c, nil
}
