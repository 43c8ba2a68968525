package config

import (
	"flag"
	"fmt"
	"io"
)

// Flags holds command-line overrides.
type Flags struct {
	Port    int    // 0 keeps the configured port
	EnvFile string // dotenv file loaded before the environment is read
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string, output io.Writer) (Flags, error) {
	var f Flags

	fs := flag.NewFlagSet("batchgate", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&f.Port, "port", 0, "port to listen on (default $APP_PORT or 5000)")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "dotenv file to load if present")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if fs.NArg() > 0 {
		return Flags{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if f.Port < 0 || f.Port > 65535 {
		return Flags{}, fmt.Errorf("invalid port %d", f.Port)
	}

	return f, nil
}

// Apply overlays flag values onto c.
func (f Flags) Apply(c *Config) {
	if f.Port != 0 {
		c.Server.Port = f.Port
	}
}
