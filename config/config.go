// Package config loads and validates the xdagd configuration from
// command-line flags and an optional INI config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/dagconfig"
	"github.com/xdagger/xdagd/infrastructure/logger"
	"github.com/xdagger/xdagd/version"
)

const (
	defaultConfigFilename = "xdagd.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "xdagd.log"
	defaultErrLogFilename = "xdagd_err.log"
	defaultLogLevel       = "info"
	defaultDataDirname    = "xdagd"
	defaultMaxQueueSize   = 1024
)

// Flags defines the configuration options for xdagd.
//
// See loadConfig for details on the configuration load process.
type Flags struct {
	ShowVersion  bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile   string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir      string `short:"b" long:"datadir" description:"Directory to store data"`
	Network      string `long:"network" description:"The xdag network to connect to" choice:"main" choice:"test" choice:"dev" default:"main"`
	Port         uint16 `long:"port" description:"Port to listen for peer connections on (0 = network default)"`
	BootNodes    string `long:"bootnodes" description:"Comma-separated host:port addresses to bootstrap from"`
	LogLevel     string `short:"d" long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	NoListener   bool   `long:"nolistener" description:"Disable the inbound peer listener"`
	Proxy        string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	MaxQueueSize int    `long:"maxqueuesize" description:"Maximum outbound messages queued per peer"`
}

// Config is the parsed and resolved node configuration.
type Config struct {
	*Flags

	// Params are the network parameters selected by --network.
	Params *dagconfig.Params

	// ListenPort is the resolved listening port, 0 when listening is
	// disabled.
	ListenPort uint16

	// BootNodeList is the parsed --bootnodes value, falling back to the
	// network's defaults.
	BootNodeList []string
}

func defaultHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, "."+defaultDataDirname)
}

// LoadConfig initializes and parses the config using command line options
// and a config file, applies defaults, and brings the logging backend up.
//
// Any unrecoverable problem is returned as an error; callers map it to
// exit code 1.
func LoadConfig() (*Config, error) {
	cfgFlags := &Flags{
		DataDir:      defaultHomeDir(),
		LogLevel:     defaultLogLevel,
		MaxQueueSize: defaultMaxQueueSize,
	}
	parser := flags.NewParser(cfgFlags, flags.HelpFlag)
	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		return nil, errors.WithStack(err)
	}

	// A config file may refine the flag values; missing files are only an
	// error when named explicitly.
	configFile := cfgFlags.ConfigFile
	explicit := configFile != ""
	if !explicit {
		configFile = filepath.Join(cfgFlags.DataDir, defaultConfigFilename)
	}
	iniParser := flags.NewIniParser(parser)
	if err := iniParser.ParseFile(configFile); err != nil {
		if explicit || !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "cannot parse config file %s", configFile)
		}
	}

	if cfgFlags.ShowVersion {
		fmt.Printf("xdagd version %s\n", version.Version())
		os.Exit(0)
	}

	params := dagconfig.ParamsForNetwork(cfgFlags.Network)
	if params == nil {
		return nil, errors.Errorf("unknown network %q", cfgFlags.Network)
	}

	cfg := &Config{
		Flags:  cfgFlags,
		Params: params,
	}

	cfg.ListenPort = cfgFlags.Port
	if cfg.ListenPort == 0 {
		cfg.ListenPort = params.DefaultPort
	}
	if cfgFlags.NoListener {
		cfg.ListenPort = 0
	}

	if cfgFlags.BootNodes != "" {
		for _, addr := range strings.Split(cfgFlags.BootNodes, ",") {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			if _, err := validateHostPort(addr); err != nil {
				return nil, err
			}
			cfg.BootNodeList = append(cfg.BootNodeList, addr)
		}
	} else {
		cfg.BootNodeList = params.BootNodes
	}

	// Data and log directories are per-network so that switching networks
	// never mixes stores.
	cfg.DataDir = filepath.Join(cfg.DataDir, params.Name)
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, errors.Wrapf(err, "cannot create data directory %s", cfg.DataDir)
	}

	logDir := filepath.Join(cfg.DataDir, defaultLogDirname)
	logger.InitLogDir(filepath.Join(logDir, defaultLogFilename),
		filepath.Join(logDir, defaultErrLogFilename))
	if err := logger.ParseAndSetLogLevels(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateHostPort rejects boot node addresses without a port.
func validateHostPort(addr string) (string, error) {
	colon := strings.LastIndex(addr, ":")
	if colon <= 0 || colon == len(addr)-1 {
		return "", errors.Errorf("boot node address %q is not host:port", addr)
	}
	return addr, nil
}
