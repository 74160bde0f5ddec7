package settings

import (
	"strings"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ErrMissingSessionSecret is raised when serving is attempted without a
// configured session secret. The handler also guards against it at request
// time so a misconfigured deployment fails with a clear error instead of
// handing out undecryptable sessions.
var ErrMissingSessionSecret = errors.New("no session secret configured")

type ServerSettings struct {
	Addr       string `mapstructure:"addr" yaml:"addr"`
	CookieName string `mapstructure:"cookie_name" yaml:"cookie_name"`
}

type StorageSettings struct {
	// Backend selects the conversation store implementation: "sqlite" for
	// the durable store, "memory" for the ephemeral per-process store that
	// loses all history on restart.
	Backend string `mapstructure:"backend" yaml:"backend"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

type ProviderSettings struct {
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

type SessionSettings struct {
	// Secret seals the provider credential inside the session token. It has
	// no default on purpose.
	Secret string `mapstructure:"secret" yaml:"-"`
}

type LogSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Settings is the complete configuration of the service. It is loaded once
// and passed explicitly into every component constructor; nothing reads
// ambient process state at call sites.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server" yaml:"server"`
	Storage  StorageSettings  `mapstructure:"storage" yaml:"storage"`
	Provider ProviderSettings `mapstructure:"provider" yaml:"provider"`
	Session  SessionSettings  `mapstructure:"session" yaml:"session"`
	Log      LogSettings      `mapstructure:"log" yaml:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cookie_name", "figaro_user")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.dsn", "figaro.db")
	v.SetDefault("provider.model", "gpt-3.5-turbo")
	v.SetDefault("provider.temperature", 0.5)
	v.SetDefault("provider.max_tokens", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads settings from the given config file (optional) and from
// FIGARO_* environment variables.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("figaro")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// keys without defaults need an explicit binding to be visible to Unmarshal
	_ = v.BindEnv("session.secret")
	_ = v.BindEnv("provider.base_url")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "could not read config file %s", configFile)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal settings")
	}

	return s, nil
}

// Validate checks the invariants needed to serve requests.
func (s *Settings) Validate() error {
	if s.Session.Secret == "" {
		return ErrMissingSessionSecret
	}
	switch s.Storage.Backend {
	case "sqlite", "memory":
	default:
		return errors.Errorf("unknown storage backend %q", s.Storage.Backend)
	}
	if s.Provider.Model == "" {
		return errors.New("no provider model configured")
	}
	return nil
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}
