package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process settings read from the environment. The command uses
// these as flag defaults, so flags still win.
type Env struct {
	TuningPath        string `env:"GESTURELIFE_TUNING" envDefault:"config/tuning.defaults.json"`
	HTTPListen        string `env:"GESTURELIFE_HTTP_LISTEN" envDefault:":8080"`
	GRPCListen        string `env:"GESTURELIFE_GRPC_LISTEN"`
	UDPListen         string `env:"GESTURELIFE_UDP_LISTEN" envDefault:":5005"`
	DetectorURL       string `env:"GESTURELIFE_DETECTOR_URL"`
	DetectorHealthURL string `env:"GESTURELIFE_DETECTOR_HEALTH_URL"`
	FramesDir         string `env:"GESTURELIFE_FRAMES_DIR"`
	PCAPFile          string `env:"GESTURELIFE_PCAP"`
	PCAPPort          int    `env:"GESTURELIFE_PCAP_PORT" envDefault:"5005"`
	DBPath            string `env:"GESTURELIFE_DB"`
	ReplaySession     string `env:"GESTURELIFE_REPLAY_SESSION"`
	PlotDir           string `env:"GESTURELIFE_PLOT_DIR"`
	Verbose           bool   `env:"GESTURELIFE_VERBOSE"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv returns Env populated from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}
