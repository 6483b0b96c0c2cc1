package stream

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v2"

	"github.com/matt-g-everett/dashtx/util"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Defaults taken from the animated bike path layer.
const (
	DefaultLayerID    = "animated_line_layer_id"
	DefaultSourceID   = "animated_line_source"
	DefaultColour     = "#bf42f4"
	DefaultWidth      = 4.5
	DefaultDashLength = 1.0
	DefaultGapLength  = 3.0
	DefaultSteps      = 40
	DefaultIntervalMs = 25
)

type LayerConfig struct {
	ID       string  `yaml:"id" validate:"required"`
	SourceID string  `yaml:"source" validate:"required"`
	Colour   string  `yaml:"colour" validate:"required,hexcolor"`
	Width    float64 `yaml:"width" validate:"gt=0"`
	Cap      string  `yaml:"cap" validate:"oneof=butt round square"`
	Join     string  `yaml:"join" validate:"oneof=bevel round miter"`
}

type AnimationConfig struct {
	DashLength float64 `yaml:"dashLength" validate:"gt=0"`
	GapLength  float64 `yaml:"gapLength" validate:"gt=0"`
	Steps      int     `yaml:"steps" validate:"gt=1"`
	IntervalMs int     `yaml:"intervalMs" validate:"gt=0"`
	Easing     string  `yaml:"easing"`
}

// Interval is the delay between ticks.
func (a AnimationConfig) Interval() time.Duration {
	return time.Duration(a.IntervalMs) * time.Millisecond
}

type Config struct {
	Mqtt struct {
		Enabled  bool   `yaml:"enabled"`
		URL      string `yaml:"url" validate:"required_if=Enabled true"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		ClientID string `yaml:"clientID"`
		Qos      byte   `yaml:"qos" validate:"lte=2"`
		Topics   struct {
			Stream string `yaml:"stream"`
		} `yaml:"topics"`
	} `yaml:"mqtt"`
	Api struct {
		Enabled   bool   `yaml:"enabled"`
		Listen    string `yaml:"listen" validate:"required_if=Enabled true"`
		StaticDir string `yaml:"staticDir"`
	} `yaml:"api"`
	Layer     LayerConfig     `yaml:"layer"`
	Animation AnimationConfig `yaml:"animation"`
}

// DefaultConfig returns a Config holding the built-in defaults.
func DefaultConfig() Config {
	var c Config
	c.Mqtt.Topics.Stream = "map/style/dasharray"
	c.Api.Listen = ":3000"
	c.Api.StaticDir = "client/dist"
	c.Layer = LayerConfig{
		ID:       DefaultLayerID,
		SourceID: DefaultSourceID,
		Colour:   DefaultColour,
		Width:    DefaultWidth,
		Cap:      LineCapRound,
		Join:     LineJoinRound,
	}
	c.Animation = AnimationConfig{
		DashLength: DefaultDashLength,
		GapLength:  DefaultGapLength,
		Steps:      DefaultSteps,
		IntervalMs: DefaultIntervalMs,
		Easing:     "linear",
	}
	return c
}

// ReadConfig decodes YAML over the defaults and validates the result.
func ReadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// Validate checks field constraints, the layer colour and the easing name.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// hexcolor also admits alpha forms that layers cannot parse.
	if _, err := colorful.Hex(c.Layer.Colour); err != nil {
		return fmt.Errorf("%w: layer colour: %v", ErrInvalidConfig, err)
	}
	if _, err := util.LookupEasing(c.Animation.Easing); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// NewAnimation builds the DashAnimation described by the config.
func (c Config) NewAnimation() (*DashAnimation, error) {
	easing, err := util.LookupEasing(c.Animation.Easing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	a := c.Animation
	return NewDashAnimation(a.DashLength, a.GapLength, a.Steps, easing)
}
