// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/BurntSushi/toml"
	"github.com/ergochat/irc-go/ircutils"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/boardirc/boardirc/irc/kv"
	"github.com/boardirc/boardirc/irc/logger"
	"github.com/boardirc/boardirc/irc/utils"
)

// here's how this works: exported (capitalized) members of the config structs
// are defined in the YAML (or TOML) file and deserialized directly from there.
// Unexported (lowercase) members are derived from the exported members in
// prepare().

const (
	// envPrefix introduces an override such as BOARDIRC__SERVER__MAX_CONNECTIONS=64
	envPrefix = "BOARDIRC__"

	defaultHandshakeTimeout = "30s"
	defaultReplayBatch      = "4k"
)

// ListenerConfig is the configuration of a single listening address.
type ListenerConfig struct {
	WebSocket bool `yaml:"websocket" toml:"websocket"`
}

// Config defines the overall configuration.
type Config struct {
	Server struct {
		Name                   string                    `yaml:"name" toml:"name" validate:"required"`
		Listeners              map[string]ListenerConfig `yaml:"listeners" toml:"listeners" validate:"required,min=1"`
		DefaultChannel         string                    `yaml:"default-channel" toml:"default-channel"`
		HandshakeTimeoutString string                    `yaml:"handshake-timeout" toml:"handshake-timeout"`
		handshakeTimeout       time.Duration
		MaxConnections         int    `yaml:"max-connections" toml:"max-connections" validate:"gte=0"`
		ReplayBatchString      string `yaml:"replay-batch" toml:"replay-batch"`
		replayBatch            int
		WebSockets             struct {
			AllowedOrigins []string `yaml:"allowed-origins" toml:"allowed-origins"`
		} `yaml:"websockets" toml:"websockets"`
	} `yaml:"server" toml:"server"`

	Datastore struct {
		Path string `yaml:"path" toml:"path"`
	} `yaml:"datastore" toml:"datastore"`

	API struct {
		Enabled  bool   `yaml:"enabled" toml:"enabled"`
		Listener string `yaml:"listener" toml:"listener" validate:"required_if=Enabled true"`
	} `yaml:"api" toml:"api"`

	Debug struct {
		RecoverFromErrors *bool `yaml:"recover-from-errors" toml:"recover-from-errors"`
		recoverFromErrors bool
	} `yaml:"debug" toml:"debug"`

	Logging []logger.LoggingConfig `yaml:"logging" toml:"logging"`

	Filename string `yaml:"-" toml:"-"`
}

// HandshakeTimeout bounds the USER and PONG steps of the handshake; zero
// disables the bound.
func (conf *Config) HandshakeTimeout() time.Duration {
	return conf.Server.handshakeTimeout
}

// ReplayBatch is the maximum number of bytes written per board replay batch.
func (conf *Config) ReplayBatch() int {
	return conf.Server.replayBatch
}

// LoadRawConfig decodes a config file without applying environment overrides
// or deriving anything. Files ending in .toml are decoded as TOML, everything
// else as YAML.
func LoadRawConfig(filename string) (config *Config, err error) {
	config = new(Config)
	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		_, err = toml.DecodeFile(filename, config)
	} else {
		var data []byte
		data, err = os.ReadFile(filename)
		if err == nil {
			err = yaml.Unmarshal(data, config)
		}
	}
	if err != nil {
		return nil, err
	}
	config.Filename = filename
	return config, nil
}

// LoadConfig loads the given configuration file, applies overrides from the
// environment and validates the result.
func LoadConfig(filename string) (config *Config, err error) {
	config, err = LoadRawConfig(filename)
	if err != nil {
		return nil, err
	}

	for _, envPair := range os.Environ() {
		applied, name, envErr := mungeFromEnvironment(config, envPair)
		if envErr != nil {
			if envErr.fatalErr != nil {
				return nil, envErr
			}
			log.Println(envErr.Error())
		} else if applied {
			log.Printf("applied environment override: %s\n", name)
		}
	}

	if err = config.prepare(); err != nil {
		return nil, err
	}
	return config, nil
}

// prepare validates the config and fills in defaults and derived values.
func (config *Config) prepare() (err error) {
	if config.Server.Name == "" {
		return ErrServerNameMissing
	}
	if !ircutils.HostnameIsValid(config.Server.Name) {
		return ErrServerNameNotHostname
	}
	if len(config.Server.Listeners) == 0 {
		return ErrNoListenersDefined
	}
	if config.API.Enabled && config.API.Listener == "" {
		return ErrAPIListenerMissing
	}
	if err = validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if config.Server.DefaultChannel == "" {
		config.Server.DefaultChannel = DefaultChannel
	}
	if config.Server.HandshakeTimeoutString == "" {
		config.Server.HandshakeTimeoutString = defaultHandshakeTimeout
	}
	config.Server.handshakeTimeout, err = time.ParseDuration(config.Server.HandshakeTimeoutString)
	if err != nil || config.Server.handshakeTimeout <= 0 {
		return fmt.Errorf("handshake-timeout must be a positive duration: %q", config.Server.HandshakeTimeoutString)
	}
	if config.Server.ReplayBatchString == "" {
		config.Server.ReplayBatchString = defaultReplayBatch
	}
	replayBatch, err := bytefmt.ToBytes(config.Server.ReplayBatchString)
	if err != nil || replayBatch == 0 {
		return fmt.Errorf("Could not parse replay-batch: %q", config.Server.ReplayBatchString)
	}
	config.Server.replayBatch = int(replayBatch)

	if config.Datastore.Path == "" {
		config.Datastore.Path = kv.InMemory
	}

	config.Debug.recoverFromErrors = utils.BoolDefaultTrue(config.Debug.RecoverFromErrors)

	for i := range config.Logging {
		if err = config.Logging[i].Prepare(); err != nil {
			return err
		}
	}
	return nil
}

type configPathError struct {
	name     string
	desc     string
	fatalErr error
}

func (ce *configPathError) Error() string {
	if ce.fatalErr != nil {
		return fmt.Sprintf("Couldn't apply config override `%s`: %s: %v", ce.name, ce.desc, ce.fatalErr)
	}
	return fmt.Sprintf("Couldn't apply config override `%s`: %s", ce.name, ce.desc)
}

func (ce *configPathError) Unwrap() error {
	return ce.fatalErr
}

// mungeFromEnvironment applies a single override of the form
// BOARDIRC__SERVER__MAX_CONNECTIONS=64. Path components are matched against
// yaml tags (with '_' standing in for '-'), then against field names; the value
// is decoded as YAML into the field it names.
func mungeFromEnvironment(config *Config, envPair string) (applied bool, name string, err *configPathError) {
	equalIdx := strings.IndexByte(envPair, '=')
	if equalIdx == -1 {
		return false, "", nil
	}
	name, value := envPair[:equalIdx], envPair[equalIdx+1:]
	if !strings.HasPrefix(name, envPrefix) {
		return false, "", nil
	}
	name = strings.TrimPrefix(name, envPrefix)

	pathComponents := strings.Split(name, "__")
	for i, pathComponent := range pathComponents {
		if pathComponent == "" {
			return false, "", &configPathError{name, "invalid", nil}
		}
		pathComponents[i] = strings.ToLower(strings.ReplaceAll(pathComponent, "_", "-"))
	}

	v := reflect.Indirect(reflect.ValueOf(config))
	t := v.Type()
	for _, component := range pathComponents {
		if v.Kind() != reflect.Struct {
			return false, "", &configPathError{name, "index into non-struct", nil}
		}
		var nextField reflect.StructField
		success := false
		n := t.NumField()
		// preferentially get a field with an exact yaml tag match,
		// then fall back to case-insensitive comparison of field names
		for i := 0; i < n; i++ {
			field := t.Field(i)
			tag := strings.Split(field.Tag.Get("yaml"), ",")[0]
			if field.IsExported() && tag != "-" && tag == component {
				nextField = field
				success = true
				break
			}
		}
		if !success {
			for i := 0; i < n; i++ {
				field := t.Field(i)
				if field.IsExported() && field.Tag.Get("yaml") != "-" && strings.ToLower(field.Name) == component {
					nextField = field
					success = true
					break
				}
			}
		}
		if !success {
			return false, "", &configPathError{name, fmt.Sprintf("couldn't resolve path component: `%s`", component), nil}
		}
		v = v.FieldByName(nextField.Name)
		// dereference pointer field if necessary, initialize new value if necessary
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = reflect.Indirect(v)
		}
		t = v.Type()
	}
	yamlErr := yaml.Unmarshal([]byte(value), v.Addr().Interface())
	if yamlErr != nil {
		return false, "", &configPathError{name, "couldn't deserialize YAML", yamlErr}
	}
	return true, name, nil
}
