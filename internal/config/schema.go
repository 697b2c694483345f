package config

// ConfigFileNames are the base names searched for a config file.
var ConfigFileNames = []string{"davstore", ".davstore"}

// ConfigFileExtensions are the recognized config file extensions.
var ConfigFileExtensions = []string{"yaml", "yml"}

// Config is the root configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Output  OutputConfig  `mapstructure:"output"`
}

// StorageConfig configures the storage tree.
type StorageConfig struct {
	// FilesystemFolder is the root of the storage tree.
	FilesystemFolder string `mapstructure:"filesystem_folder"`
	// Hook is the command template run after each committed write
	// transaction. The %(user)s placeholder is replaced with the
	// shell-quoted transaction user. Empty disables the hook.
	Hook string `mapstructure:"hook"`
}

// OutputConfig configures logging and CLI output.
type OutputConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// Verbose forces debug-level logging.
	Verbose bool `mapstructure:"verbose"`
	// Color enables colored CLI output.
	Color bool `mapstructure:"color"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			FilesystemFolder: "",
			Hook:             "",
		},
		Output: OutputConfig{
			LogLevel: "info",
			Verbose:  false,
			Color:    true,
		},
	}
}
