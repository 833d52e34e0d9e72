package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"golang.org/x/text/language"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// MarginsConfig keeps page margins in millimeters.
	MarginsConfig struct {
		Top    float64 `yaml:"top" validate:"gte=0,lte=200"`
		Right  float64 `yaml:"right" validate:"gte=0,lte=200"`
		Bottom float64 `yaml:"bottom" validate:"gte=0,lte=200"`
		Left   float64 `yaml:"left" validate:"gte=0,lte=200"`
	}

	ImagesConfig struct {
		Workers      int           `yaml:"workers" validate:"gte=1,lte=256"`
		Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
		UserAgent    string        `yaml:"user_agent"`
		MaxSize      int64         `yaml:"max_size" validate:"gt=0"`
		RasterizeSVG bool          `yaml:"rasterize_svg"`
	}

	DocumentConfig struct {
		PageSize              PageSize      `yaml:"page_size"`
		DefaultFont           string        `yaml:"default_font" validate:"required"`
		DefaultFontSize       float64       `yaml:"default_font_size" validate:"gt=0,lte=200"`
		Margins               MarginsConfig `yaml:"margins"`
		Language              string        `yaml:"language"`
		Creator               string        `yaml:"creator"`
		FixZip                bool          `yaml:"fix_zip"`
		OutputNameTemplate    string        `yaml:"output_name_template"`
		FileNameTransliterate bool          `yaml:"file_name_transliterate"`
		Images                ImagesConfig  `yaml:"images"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// LanguageTag returns parsed document language, empty language is not an
// error and results in language.Und.
func (conf *DocumentConfig) LanguageTag() (language.Tag, error) {
	if len(conf.Language) == 0 {
		return language.Und, nil
	}
	tag, err := language.Parse(conf.Language)
	if err != nil {
		return language.Und, fmt.Errorf("bad document language %q: %w", conf.Language, err)
	}
	return tag, nil
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
		if !cfg.Document.PageSize.IsValid() {
			return nil, fmt.Errorf("unsupported page size: %s", cfg.Document.PageSize)
		}
		if _, err := cfg.Document.LanguageTag(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
