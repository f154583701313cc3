package emu

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"gigatron/emu/log"
	"gigatron/hw"
)

type Config struct {
	Input     hw.InputConfig  `toml:"input"`
	Video     hw.VideoConfig  `toml:"video"`
	Audio     AudioConfig     `toml:"audio"`
	Emulation EmulationConfig `toml:"emulation"`
}

type AudioConfig struct {
	DisableAudio bool    `toml:"disable_audio"`
	Volume       float64 `toml:"volume"`
}

type EmulationConfig struct {
	// RAM size as an address width; 17 (128KB) enables the bank-switching
	// expansion that extended ROMs require.
	RAMAddrWidth uint `toml:"ram_address_width"`
}

func defaultConfig() Config {
	return Config{
		Video: hw.VideoConfig{Scale: 2},
		Audio: AudioConfig{Volume: 1.0},
	}
}

var ConfigDir string = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("gigatron")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})()

const cfgFilename = "config.toml"

// LoadConfigOrDefault loads the configuration from the gigatron config
// directory, or provides a default one.
func LoadConfigOrDefault() Config {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(filepath.Join(ConfigDir, cfgFilename), &cfg); err != nil {
		return defaultConfig()
	}
	return cfg
}

// SaveConfig into the gigatron config directory.
func SaveConfig(cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(ConfigDir, cfgFilename), buf, 0644)
}
