package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" mapstructure:"level"`       // trace, debug, info, warn, error
	Timezone string `yaml:"timezone" mapstructure:"timezone"` // "Local", "UTC" or an IANA name
	File     string `yaml:"file" mapstructure:"file"`         // JSON log file path, empty disables file output
}

// DefaultLogLevel is used when the configured level is empty or unknown.
const DefaultLogLevel = "info"
