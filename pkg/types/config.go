package types

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// OutputConfig controls where converted documents are written.
type OutputConfig struct {
	// Dir is the output root holding {name}.md files and the images tree.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Frontmatter prepends a YAML header with conversion metadata.
	Frontmatter bool `json:"frontmatter" yaml:"frontmatter" mapstructure:"frontmatter"`

	// Overwrite re-converts documents whose Markdown output already exists.
	Overwrite bool `json:"overwrite" yaml:"overwrite" mapstructure:"overwrite"`
}

// NamingConfig holds filename normalization settings.
type NamingConfig struct {
	// MaxFilenameLength caps non-title names, extension included (default 200).
	MaxFilenameLength int `json:"max_filename_length" yaml:"max_filename_length" mapstructure:"max_filename_length"`

	// Transliterate converts CJK characters to pinyin (default false).
	Transliterate bool `json:"transliterate" yaml:"transliterate" mapstructure:"transliterate"`
}

// ImageConfig holds image validation and re-encoding limits.
type ImageConfig struct {
	// MaxImageBytes rejects larger images (default 10 MB).
	MaxImageBytes int64 `json:"max_image_bytes" yaml:"max_image_bytes" mapstructure:"max_image_bytes"`

	// MaxFileBytes rejects larger source documents (default 100 MB).
	MaxFileBytes int64 `json:"max_file_bytes" yaml:"max_file_bytes" mapstructure:"max_file_bytes"`

	MaxWidth  int `json:"max_width" yaml:"max_width" mapstructure:"max_width"`
	MaxHeight int `json:"max_height" yaml:"max_height" mapstructure:"max_height"`

	// Quality is the JPEG quality used when re-encoding (default 85).
	Quality int `json:"quality" yaml:"quality" mapstructure:"quality"`

	// OutputFormat is the normalized storage format: png or jpg (default png).
	OutputFormat string `json:"output_format" yaml:"output_format" mapstructure:"output_format"`

	// Formats lists the accepted image subtypes.
	Formats []string `json:"formats" yaml:"formats" mapstructure:"formats"`
}

// LayoutConfig controls the image directory structure.
type LayoutConfig struct {
	// BaseDir is the image root relative to the output directory (default "images").
	BaseDir string `json:"base_dir" yaml:"base_dir" mapstructure:"base_dir"`

	// Template is a named template (default, type_based, date_based, flat,
	// nested) or a literal pattern with {base_dir}, {doc_name}, {doc_type},
	// {year} and {month} variables.
	Template string `json:"template" yaml:"template" mapstructure:"template"`

	// TypePrefix enables the per-type directory name prefix.
	TypePrefix bool `json:"type_prefix" yaml:"type_prefix" mapstructure:"type_prefix"`

	// Prefixes maps document types to directory name prefixes.
	Prefixes map[string]string `json:"prefixes" yaml:"prefixes" mapstructure:"prefixes"`
}

// Strategy names accepted in ConversionConfig.Strategies.
const (
	StrategyMarkitdown  = "markitdown"
	StrategyPandoc      = "pandoc"
	StrategyDocx        = "docx"
	StrategyLibreOffice = "libreoffice"
	StrategyPDFText     = "pdftext"
	StrategyHTML        = "html"
	StrategyXLSX        = "xlsx"
	StrategyText        = "text"
	StrategyImage       = "image"
)

// ConversionConfig holds settings for the text conversion stage.
type ConversionConfig struct {
	// Strategies lists, per document type, the conversion strategies to
	// try in order.
	Strategies map[string][]string `json:"strategies" yaml:"strategies" mapstructure:"strategies"`

	PandocTimeout      time.Duration `json:"pandoc_timeout" yaml:"pandoc_timeout" mapstructure:"pandoc_timeout"`
	LibreOfficeTimeout time.Duration `json:"libreoffice_timeout" yaml:"libreoffice_timeout" mapstructure:"libreoffice_timeout"`
	ContainerTimeout   time.Duration `json:"container_timeout" yaml:"container_timeout" mapstructure:"container_timeout"`

	// MarkitdownImage is the container image used by the markitdown strategy.
	MarkitdownImage string `json:"markitdown_image" yaml:"markitdown_image" mapstructure:"markitdown_image"`

	// MaxWorkers bounds concurrent document conversions (default 4).
	MaxWorkers int `json:"max_workers" yaml:"max_workers" mapstructure:"max_workers"`
}

// PlacementConfig tunes the caption-anchored insertion heuristic.
type PlacementConfig struct {
	// CaptionsFile overrides the built-in caption pattern table (YAML).
	CaptionsFile string `json:"captions_file,omitempty" yaml:"captions_file,omitempty" mapstructure:"captions_file"`

	// Threshold is the minimum caption score for an anchor (default 0.25).
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// MinTextLength is the character count below which a PDF is treated
	// as image-only (default 50).
	MinTextLength int `json:"min_text_length" yaml:"min_text_length" mapstructure:"min_text_length"`
}

// Caption providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// CaptionConfig holds settings for optional LLM image captioning.
type CaptionConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`
	Model    string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is normally loaded from the environment or .secrets/.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`

	// Timeout bounds a single caption request (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of retries on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ManifestConfig controls the SQLite conversion manifest.
type ManifestConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Path is the database file. Empty means {output}/.docmark/manifest.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is debug, info, warn or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// ToFile mirrors logs as JSON into File.
	ToFile bool   `json:"to_file" yaml:"to_file" mapstructure:"to_file"`
	File   string `json:"file" yaml:"file" mapstructure:"file"`
}

// Config groups all docmark settings.
type Config struct {
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Naming     NamingConfig     `json:"naming" yaml:"naming" mapstructure:"naming"`
	Images     ImageConfig      `json:"images" yaml:"images" mapstructure:"images"`
	Layout     LayoutConfig     `json:"layout" yaml:"layout" mapstructure:"layout"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	Placement  PlacementConfig  `json:"placement" yaml:"placement" mapstructure:"placement"`
	Caption    CaptionConfig    `json:"caption" yaml:"caption" mapstructure:"caption"`
	Manifest   ManifestConfig   `json:"manifest" yaml:"manifest" mapstructure:"manifest"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Output: OutputConfig{Dir: "output"},
		Naming: NamingConfig{MaxFilenameLength: 200},
		Images: ImageConfig{
			MaxImageBytes: 10 * 1024 * 1024,
			MaxFileBytes:  100 * 1024 * 1024,
			MaxWidth:      2048,
			MaxHeight:     2048,
			Quality:       85,
			OutputFormat:  "png",
			Formats:       []string{"png", "jpg", "jpeg", "gif", "bmp", "tiff", "webp"},
		},
		Layout: LayoutConfig{
			BaseDir:  "images",
			Template: "default",
			Prefixes: map[string]string{
				string(DocPDF):  "PDF",
				string(DocWord): "Word",
			},
		},
		Conversion: ConversionConfig{
			Strategies: map[string][]string{
				string(DocWord):         {StrategyMarkitdown, StrategyPandoc, StrategyDocx, StrategyLibreOffice},
				string(DocPDF):          {StrategyMarkitdown, StrategyPDFText},
				string(DocPresentation): {StrategyMarkitdown},
				string(DocSpreadsheet):  {StrategyMarkitdown, StrategyXLSX},
				string(DocHTML):         {StrategyMarkitdown, StrategyHTML},
				string(DocText):         {StrategyText},
				string(DocImage):        {StrategyImage},
			},
			PandocTimeout:      60 * time.Second,
			LibreOfficeTimeout: 120 * time.Second,
			ContainerTimeout:   300 * time.Second,
			MarkitdownImage:    "markitdown:latest",
			MaxWorkers:         4,
		},
		Placement: PlacementConfig{
			Threshold:     0.25,
			MinTextLength: 50,
		},
		Caption: CaptionConfig{
			Provider:   ProviderAnthropic,
			Model:      "claude-sonnet-4-5-20250929",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Manifest: ManifestConfig{Enabled: true},
		Log: LogConfig{
			Level: "info",
			File:  "logs/docmark.log",
		},
	}
}

// Validate checks the configuration for out-of-range values.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Output),
		validation.Field(&c.Naming),
		validation.Field(&c.Images),
		validation.Field(&c.Layout),
		validation.Field(&c.Conversion),
		validation.Field(&c.Placement),
		validation.Field(&c.Caption),
		validation.Field(&c.Log),
	)
}

func (c OutputConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.Required),
	)
}

func (c NamingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxFilenameLength, validation.Required, validation.Min(8), validation.Max(255)),
	)
}

func (c ImageConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxImageBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.MaxFileBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.MaxWidth, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxHeight, validation.Required, validation.Min(1)),
		validation.Field(&c.Quality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.OutputFormat, validation.Required, validation.In("png", "jpg", "jpeg")),
		validation.Field(&c.Formats, validation.Required),
	)
}

func (c LayoutConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseDir, validation.Required),
		validation.Field(&c.Template, validation.Required),
	)
}

func (c ConversionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Strategies, validation.Required),
		validation.Field(&c.PandocTimeout, validation.Required),
		validation.Field(&c.LibreOfficeTimeout, validation.Required),
		validation.Field(&c.ContainerTimeout, validation.Required),
		validation.Field(&c.MaxWorkers, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

func (c PlacementConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Threshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MinTextLength, validation.Min(0)),
	)
}

func (c CaptionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Provider, validation.When(c.Enabled, validation.Required, validation.In(ProviderAnthropic, ProviderOpenAI))),
		validation.Field(&c.Model, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.Timeout, validation.When(c.Enabled, validation.Required)),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.File, validation.When(c.ToFile, validation.Required)),
	)
}
