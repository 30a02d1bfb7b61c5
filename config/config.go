package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "IMAGERY_CONFIG_FILE"

type queueProvider struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxPolls     int           `mapstructure:"max_polls"`
}

type hostedProvider struct {
	BaseURL string `mapstructure:"base_url"`
}

type localProvider struct {
	BaseURL string `mapstructure:"base_url"`
}

type providers struct {
	Queue  queueProvider  `mapstructure:"queue"`
	Hosted hostedProvider `mapstructure:"hosted"`
	Local  localProvider  `mapstructure:"local"`
}

type objectStore struct {
	BaseURL    string `mapstructure:"base_url"`
	ProbeLimit int    `mapstructure:"probe_limit"`
}

type remoteCatalog struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type brokerTLS struct {
	CAPath   string `mapstructure:"ca_path"`
	CertPath string `mapstructure:"cert_path"`
	KeyPath  string `mapstructure:"key_path"`
}

type broker struct {
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	RemovalEventsTopic string    `mapstructure:"removal_events_topic"`
	TLS                brokerTLS `mapstructure:"tls"`
}

type Config struct {
	LogLevel       slog.Level    `mapstructure:"log_level"`
	HTTPServerAddr string        `mapstructure:"http_server_addr"`
	SQLDB          string        `mapstructure:"sql_db"`
	Providers      providers     `mapstructure:"providers"`
	ObjectStore    objectStore   `mapstructure:"object_store"`
	RemoteCatalog  remoteCatalog `mapstructure:"remote_catalog"`
	Broker         broker        `mapstructure:"broker"`
}

func Load() Config {
	viper.SetConfigFile(getConfigFilepath())

	err := viper.ReadInConfig()
	if err != nil {
		die(err)
	}

	var cfg Config
	err = viper.UnmarshalExact(&cfg)
	if err != nil {
		die(err)
	}

	return cfg
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	SQLDB=%q

	Providers:
	Queue:
		BaseURL=%q
		APIKey set=%t
	Hosted:
		BaseURL=%q
	Local:
		BaseURL=%q

	ObjectStore:
	BaseURL=%q
	ProbeLimit=%d

	RemoteCatalog:
	BaseURL=%q
	Timeout=%q

	BrokerConfig:
	SeedBrokers=%q
	RemovalEventsTopic=%q
	TLS enabled=%t

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.SQLDB,
		c.Providers.Queue.BaseURL,
		c.Providers.Queue.APIKey != "",
		c.Providers.Hosted.BaseURL,
		c.Providers.Local.BaseURL,
		c.ObjectStore.BaseURL,
		c.ObjectStore.ProbeLimit,
		c.RemoteCatalog.BaseURL,
		c.RemoteCatalog.Timeout,
		c.Broker.SeedBrokers,
		c.Broker.RemovalEventsTopic,
		c.Broker.TLS.CAPath != "",
	)
}
