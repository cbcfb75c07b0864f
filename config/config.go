// Package config loads the settings of the gridmap commands from an optional
// file and GRIDMAP_ environment variables, on top of the struct defaults.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/spf13/viper"

	"github.com/pdok/gridmap/spatial"
	"github.com/pdok/gridmap/worker"
)

const EnvPrefix = "GRIDMAP"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log     Log           `mapstructure:"log"`
	Tiles   Tiles         `mapstructure:"tiles"`
	Worker  worker.Config `mapstructure:"worker"`
	Network Network       `mapstructure:"network"`
	Metrics Metrics       `mapstructure:"metrics"`
}

type Log struct {
	Level string `mapstructure:"level" default:"info" validate:"oneof=trace debug info warn error"`
	// File receives the log as well when set.
	File string `mapstructure:"file"`
}

type Tiles struct {
	URL       string        `mapstructure:"url" default:"https://tile.openstreetmap.org/{z}/{x}/{y}.png" validate:"required"`
	UserAgent string        `mapstructure:"userAgent" default:"gridmap/1.0" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout" default:"30s" validate:"min=1ms"`
	// Store is where downloaded tiles are kept: file, mbtiles, mysql, postgres, redis or none.
	Store     string        `mapstructure:"store" default:"file" validate:"oneof=file mbtiles mysql postgres redis none"`
	Dir       string        `mapstructure:"dir" default:"tiles" validate:"required_if=Store file"`
	MBTiles   string        `mapstructure:"mbtiles" default:"tiles.mbtiles" validate:"required_if=Store mbtiles"`
	DSN       string        `mapstructure:"dsn" validate:"required_if=Store mysql,required_if=Store postgres"`
	Redis     string        `mapstructure:"redis" default:"localhost:6379" validate:"required_if=Store redis"`
	RedisTTL  time.Duration `mapstructure:"redisTTL"`
	CacheSize int           `mapstructure:"cacheSize" default:"240" validate:"min=1"`
	// Workers download concurrently when prefetching.
	Workers int `mapstructure:"workers" default:"4" validate:"min=1,max=64"`
}

type Network struct {
	VertexPowers   []string `mapstructure:"vertexPowers" default:"[\"ultra\",\"extra\",\"medium\",\"low\"]" validate:"min=1,max=8,dive,power"`
	CablePowers    []string `mapstructure:"cablePowers" default:"[\"ultra\",\"high\",\"low\",\"low\"]" validate:"min=1,max=8,dive,power"`
	BuildingPowers []string `mapstructure:"buildingPowers" default:"[\"ultra\",\"extra\",\"medium\",\"low\"]" validate:"min=1,max=8,dive,power"`
	// Workers insert concurrently on reload, 0 for all CPUs.
	Workers int `mapstructure:"workers" validate:"min=0"`
}

type Metrics struct {
	// Addr serves /metrics when set, e.g. ":9100".
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("power", func(fl validator.FieldLevel) bool {
		_, err := spatial.ParsePower(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads file, when not empty, and the environment into a Config with
// defaults. Every setting has an environment variable: tiles.userAgent is
// GRIDMAP_TILES_USER_AGENT.
func Load(file string) (*Config, error) {
	v := viper.New()
	for _, key := range keys(reflect.TypeOf(Config{}), "") {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return nil, err
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// fills only what neither the file nor the environment set
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// EnvName is the environment variable of a dotted config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strcase.ToScreamingSnake(strings.ReplaceAll(key, ".", "_"))
}

// keys lists the dotted mapstructure keys of the leaves of t.
func keys(t reflect.Type, prefix string) []string {
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			out = append(out, keys(f.Type, name)...)
			continue
		}
		out = append(out, name)
	}
	return out
}

// Powers parses the configured powers of the vertex, cable and building index.
func (n Network) Powers() (vertices, cables, buildings []spatial.Power, err error) {
	if vertices, err = spatial.ParsePowers(n.VertexPowers); err != nil {
		return
	}
	if cables, err = spatial.ParsePowers(n.CablePowers); err != nil {
		return
	}
	buildings, err = spatial.ParsePowers(n.BuildingPowers)
	return
}
