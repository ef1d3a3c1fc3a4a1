package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

const (
	AppName                 = "mediacmd"
	DefaultRegistryFileName = "imageData.json"
	DotEnvFileName          = ".env"
)

// Environment holds the process configuration read from environment variables.
type Environment struct {
	Home           string `env:"HOME"`
	Pwd            string `env:"PWD"`
	DataDir        string `env:"MEDIACMD_DATA_DIR"`
	RegistryFile   string `env:"MEDIACMD_REGISTRY_FILE"`
	Trigger        string `env:"MEDIACMD_TRIGGER,default=!"`
	KeepLossless   string `env:"MEDIACMD_KEEP_LOSSLESS,default=0"`
	NonInteractive string `env:"NON_INTERACTIVE,default=0"`
	Debug          string `env:"DEBUG,default=0"`
}

// Paths are the directories and files derived from an Environment.
type Paths struct {
	DataDir        string
	ImagesDir      string
	DownloadingDir string
	RegistryFile   string
}

// loadDotEnv reads KEY=VALUE pairs from a .env file in dir and sets those not
// already present in the process environment.
func loadDotEnv(fs afero.Fs, dir string) error {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, DotEnvFileName)
	exists, err := afero.Exists(fs, path)
	if err != nil || !exists {
		return err
	}

	f, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for k, v := range values {
		if _, set := os.LookupEnv(k); !set {
			if err := os.Setenv(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewEnvironment builds an Environment. When environ is non-nil it is used as
// given (tests, embedding); otherwise the process environment is parsed after
// loading an optional .env file from the working directory.
func NewEnvironment(fs afero.Fs, environ *Environment) (*Environment, error) {
	if environ != nil {
		out := *environ
		if out.Trigger == "" {
			out.Trigger = "!"
		}
		out.NonInteractive = "1"
		return &out, nil
	}

	pwd, _ := os.Getwd()
	if err := loadDotEnv(fs, pwd); err != nil {
		return nil, err
	}

	environment := &Environment{}
	if _, err := env.UnmarshalFromEnviron(environment); err != nil {
		return nil, err
	}
	if environment.Pwd == "" {
		environment.Pwd = pwd
	}

	return environment, nil
}

// IsNonInteractive reports whether prompts must be skipped.
func (e *Environment) IsNonInteractive() bool {
	return truthy(e.NonInteractive)
}

// IsDebug reports whether debug logging was requested.
func (e *Environment) IsDebug() bool {
	return truthy(e.Debug)
}

// KeepsLossless reports whether lossless rasters are stored without transcoding.
func (e *Environment) KeepsLossless() bool {
	return truthy(e.KeepLossless)
}

// truthy accepts "1", "true", "yes" and "y" in any case.
func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

// Paths derives the working directories. The data directory defaults to
// $XDG_DATA_HOME/mediacmd.
func (e *Environment) Paths() Paths {
	dataDir := e.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(xdg.DataHome, AppName)
	}

	registryFile := e.RegistryFile
	if registryFile == "" {
		registryFile = filepath.Join(dataDir, DefaultRegistryFileName)
	}

	imagesDir := filepath.Join(dataDir, "images")
	return Paths{
		DataDir:        dataDir,
		ImagesDir:      imagesDir,
		DownloadingDir: filepath.Join(imagesDir, "downloading"),
		RegistryFile:   registryFile,
	}
}

// EnsureDirs creates every directory in p.
func (p Paths) EnsureDirs(fs afero.Fs) error {
	for _, dir := range []string{p.DataDir, p.ImagesDir, p.DownloadingDir, filepath.Dir(p.RegistryFile)} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
