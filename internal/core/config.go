package core

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to any of the
// splashsrv server components.
type Config struct {
	// Hostname or IP address on which the servers will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// Address reported to clients in the game server roster. This is what the
	// client will dial after picking a server, so it must be reachable from
	// the outside.
	ExternalAddress string `mapstructure:"external_address"`
	// Maximum number of concurrent connections the server will allow.
	MaxConnections int `mapstructure:"max_connections"`
	// Full path to file to which logs will be written. Blank will write to stdout.
	LogFilePath string `mapstructure:"log_file_path"`
	// Minimum level of a log required to be written. Options: debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`
	// Seconds a connection may sit idle before being dropped. Zero disables
	// the idle check.
	IdleTimeout int `mapstructure:"idle_timeout"`
	// X.509 certificate and key for client connections. Both blank runs the
	// listeners in plaintext, which is what stock clients expect.
	TLSCertificateFile string `mapstructure:"tls_certificate_file"`
	TLSKeyFile         string `mapstructure:"tls_key_file"`

	Database struct {
		// Path to the SQLite database file holding the account table.
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	LoginServer struct {
		// Port on which the LOGIN server will listen.
		Port int `mapstructure:"port"`
	} `mapstructure:"login_server"`

	GameServer struct {
		// Port on which the GAME server will listen.
		Port int `mapstructure:"port"`
		// Server number reported in the roster and in member info packets.
		Number int `mapstructure:"number"`
		// Name and comment shown on the server selection screen.
		Name    string `mapstructure:"name"`
		Comment string `mapstructure:"comment"`
		// Player cap advertised in the roster.
		MaxPlayers int `mapstructure:"max_players"`
		// Number of lobbies created for each multiplayer mode.
		NumLobbies int `mapstructure:"num_lobbies"`
		// Player cap for each lobby.
		LobbyCapacity int `mapstructure:"lobby_capacity"`
	} `mapstructure:"game_server"`

	Debugging struct {
		// Enable extra info-providing mechanisms for the server.
		PprofEnabled bool `mapstructure:"pprof_enabled"`
		// Port on which a pprof server will be started if debug mode is enabled.
		PprofPort int `mapstructure:"pprof_port"`
		// Log decoded packets to stdout.
		PacketLoggingEnabled bool `mapstructure:"packet_logging_enabled"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`
}

const envVarPrefix = "SPLASH"

// LoadConfig initializes Viper with the contents of the config file under configPath.
func LoadConfig(configPath string) *Config {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if errors.Is(err, viper.ConfigFileNotFoundError{}) {
			fmt.Printf("error reading config file: no config file in path %s", configPath)
		} else {
			fmt.Printf("error reading config file: %v", err)
		}
		os.Exit(1)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.path can be set using: <envVarPrefix>_DATABASE_PATH
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			fmt.Printf("error binding %s to %s", k, envVarPrefix+"_"+envVar)
			os.Exit(1)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("error unmarshaling config object: %v", err)
		os.Exit(1)
	}
	return config
}

// TLSEnabled reports whether client listeners should wrap their connections
// in TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertificateFile != "" && c.TLSKeyFile != ""
}

// IdleDeadline returns the configured idle timeout as a duration, or zero if
// idle connections should be left alone.
func (c *Config) IdleDeadline() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}
