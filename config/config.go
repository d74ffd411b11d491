package config

import (
	"github.com/kkyr/fig"
	"github.com/pkg/errors"
)

const (
	DefaultFile = "conform.toml"
	EnvPrefix   = "CONFORM"
)

type Config struct {
	LogLevel string `fig:"log_level" default:"info"`

	Reference struct {
		Prefix     string `fig:"prefix" default:"ref_d"`
		LumaSuffix string `fig:"luma_suffix" default:"y.pgm"`
		CbSuffix   string `fig:"cb_suffix" default:"cb.pgm"`
		CrSuffix   string `fig:"cr_suffix" default:"cr.pgm"`
	}

	Extract struct {
		// all | differs
		Mode       string `fig:"mode" default:"all"`
		// A pointer so that an explicit 0 survives the default.
		ProbeWidth *int   `fig:"probe_width" default:"4"`
		// Use the start code width the demuxer actually consumed instead
		// of ProbeWidth.
		TrustLookahead bool `fig:"trust_lookahead"`
		DiffMaps       bool `fig:"diff_maps"`
	}

	Decoder struct {
		FFmpegPath string `fig:"ffmpeg_path" default:"ffmpeg"`
	}
}

// Load reads file from the given dirs, falling back to defaults and
// CONFORM_* environment variables when the file does not exist.
func Load(file string, dirs ...string) (Config, error) {
	var cfg Config

	if file == "" {
		file = DefaultFile
	}
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	err := fig.Load(&cfg, fig.File(file), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if errors.Is(err, fig.ErrFileNotFound) {
		cfg = Config{}
		err = fig.Load(&cfg, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
	}
	if err != nil {
		return cfg, errors.Wrap(err, "load config")
	}

	if cfg.Extract.ProbeWidth == nil {
		width := 4
		cfg.Extract.ProbeWidth = &width
	}
	if *cfg.Extract.ProbeWidth < 0 {
		return cfg, errors.Errorf("probe_width must not be negative, got %d", *cfg.Extract.ProbeWidth)
	}

	return cfg, nil
}
