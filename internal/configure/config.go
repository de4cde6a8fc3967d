package configure

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func checkErr(err error) {
	if err != nil {
		zap.S().Fatalw("config",
			"error", err,
		)
	}
}

func New() *Config {
	initLogging("info")

	config := viper.New()

	// Default config
	b, _ := json.Marshal(Config{
		ConfigFile: "config.yaml",
		Level:      "info",
		Output: OutputConfig{
			Format:    "jpeg",
			Quality:   0.85,
			Collision: "cancel",
		},
		Convert: ConvertConfig{
			Aspect:  "original",
			Mode:    "fill",
			AnchorX: 0.5,
			AnchorY: 0.5,
		},
	})
	tmp := viper.New()
	defaultConfig := bytes.NewReader(b)
	tmp.SetConfigType("json")
	checkErr(tmp.ReadConfig(defaultConfig))
	checkErr(config.MergeConfigMap(tmp.AllSettings()))

	pflag.String("config", "config.yaml", "Config file location")
	pflag.Bool("noheader", false, "Disable the startup header")
	pflag.String("output.dir", "", "Directory converted images are written to")
	pflag.String("output.format", "jpeg", "Output format, one of jpeg, png, tiff, webp")
	pflag.Float64("output.quality", 0.85, "Encode quality between 0.0 and 1.0, jpeg/webp only")
	pflag.String("output.collision", "cancel", "Collision policy, one of replace, version, cancel")
	pflag.String("convert.aspect", "original", "Target aspect ratio, W:H or original")
	pflag.String("convert.mode", "fill", "Aspect scaling mode, fill or fit")
	pflag.Float64("convert.anchor_x", 0.5, "Fill crop anchor x in [0,1]")
	pflag.Float64("convert.anchor_y", 0.5, "Fill crop anchor y in [0,1]")
	pflag.Int("convert.resolution", 0, "Target long edge in pixels, 0 keeps the source size")
	pflag.Bool("convert.remove_letterbox", false, "Strip uniform near-black borders before converting")
	pflag.Int("worker.jobs", 0, "Concurrent conversion jobs, 0 uses all CPUs")

	pflag.Parse()
	checkErr(config.BindPFlags(pflag.CommandLine))

	// File
	config.SetConfigFile(config.GetString("config"))
	config.AddConfigPath(".")
	if err := config.ReadInConfig(); err == nil {
		checkErr(config.MergeInConfig())
	}

	bindEnvs(config, Config{})

	// Environment
	config.AutomaticEnv()
	config.SetEnvPrefix("BIC")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AllowEmptyEnv(true)

	c := &Config{}
	checkErr(config.Unmarshal(&c))

	initLogging(c.Level)

	return c
}

func bindEnvs(config *viper.Viper, iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		v := ifv.Field(i)
		t := ift.Field(i)
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			continue
		}
		switch v.Kind() {
		case reflect.Struct:
			bindEnvs(config, v.Interface(), append(parts, tv)...)
		default:
			_ = config.BindEnv(strings.Join(append(parts, tv), "."))
		}
	}
}

type Config struct {
	Level      string `mapstructure:"level" json:"level"`
	ConfigFile string `mapstructure:"config" json:"config"`
	NoHeader   bool   `mapstructure:"noheader" json:"noheader"`

	Output  OutputConfig  `mapstructure:"output" json:"output"`
	Convert ConvertConfig `mapstructure:"convert" json:"convert"`

	Worker struct {
		Jobs int `mapstructure:"jobs" json:"jobs"`
	} `mapstructure:"worker" json:"worker"`

	Health struct {
		Bind    string `mapstructure:"bind" json:"bind"`
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
	} `mapstructure:"health" json:"health"`

	Monitoring struct {
		Bind    string `mapstructure:"bind" json:"bind"`
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Labels  Labels `mapstructure:"labels" json:"labels"`
	} `mapstructure:"monitoring" json:"monitoring"`
}

type OutputConfig struct {
	Dir       string  `mapstructure:"dir" json:"dir"`
	Format    string  `mapstructure:"format" json:"format"`
	Quality   float64 `mapstructure:"quality" json:"quality"`
	Collision string  `mapstructure:"collision" json:"collision"`
}

type ConvertConfig struct {
	Aspect          string  `mapstructure:"aspect" json:"aspect"`
	Mode            string  `mapstructure:"mode" json:"mode"`
	AnchorX         float64 `mapstructure:"anchor_x" json:"anchor_x"`
	AnchorY         float64 `mapstructure:"anchor_y" json:"anchor_y"`
	Resolution      int     `mapstructure:"resolution" json:"resolution"`
	RemoveLetterbox bool    `mapstructure:"remove_letterbox" json:"remove_letterbox"`
}

type Labels []struct {
	Key   string `mapstructure:"key" json:"key"`
	Value string `mapstructure:"value" json:"value"`
}

func (l Labels) ToPrometheus() prometheus.Labels {
	mp := prometheus.Labels{}

	for _, v := range l {
		mp[v.Key] = v.Value
	}

	return mp
}
