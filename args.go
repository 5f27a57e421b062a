package main

import (
	"flag"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Longest server password we accept.
const maxPasswordLength = 255

// Args are command line arguments.
type Args struct {
	Port       int
	Password   string
	ConfigFile string
}

func getArgs() (Args, error) {
	configFile := flag.String("conf", "", "Configuration file (optional).")

	flag.Parse()

	if flag.NArg() != 2 {
		flag.PrintDefaults()
		return Args{}, errors.New("usage: minnow [-conf <file>] <port> <password>")
	}

	port, err := parsePort(flag.Arg(0))
	if err != nil {
		return Args{}, err
	}

	password := flag.Arg(1)
	if err := validatePassword(password); err != nil {
		return Args{}, err
	}

	args := Args{
		Port:     port,
		Password: password,
	}

	if len(*configFile) > 0 {
		configPath, err := filepath.Abs(*configFile)
		if err != nil {
			return Args{}, errors.Wrapf(err,
				"unable to determine absolute path to config file: %s", *configFile)
		}
		args.ConfigFile = configPath
	}

	return args, nil
}

// parsePort parses a listening port: decimal digits only, 1 to 65535.
func parsePort(s string) (int, error) {
	if len(s) == 0 {
		return 0, errors.New("port is blank")
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errors.Errorf("invalid port: %s", s)
		}
	}

	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("invalid port: %s", s)
	}

	if port < 1 || port > 65535 {
		return 0, errors.Errorf("port out of range: %d", port)
	}

	return port, nil
}

// validatePassword checks a server password: non-empty, at most 255 bytes,
// and no control characters other than TAB.
func validatePassword(password string) error {
	if len(password) == 0 {
		return errors.New("password is blank")
	}

	if len(password) > maxPasswordLength {
		return errors.Errorf("password is too long (maximum %d)",
			maxPasswordLength)
	}

	for i := 0; i < len(password); i++ {
		c := password[i]
		if c == '\t' {
			continue
		}
		if c < 0x20 || c == 0x7f {
			return errors.New("password contains control characters")
		}
	}

	return nil
}
