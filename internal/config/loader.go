package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// InlineSource is the Source recorded for configs passed as text.
const InlineSource = "<inline>"

// Error code constants shared with the CLI.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeScanError  = "E002" // Directory scan error
	ErrCodeNoConfig   = "E003" // No config with an eventchain marker
	ErrCodeParse      = "E004" // Config text could not be parsed
	ErrCodeNotFound   = "E005" // Path not found
	ErrCodeAmbiguous  = "E006" // More than one candidate config
	ErrCodeValidation = "E007" // Config failed validation
)

// Diagnostics printed when resolution fails.
const (
	MsgNoConfig  = "Couldn't find a JSON file with an 'eventchain' attribute"
	MsgAmbiguous = "Only one config JSON supported per Eventchain."
)

// LoadOptions selects where the config comes from. The first non-empty
// source wins: InlineConfig, then ConfigPath, then a scan of Dir.
type LoadOptions struct {
	InlineConfig string
	ConfigPath   string

	// Dir is the working directory. Relative paths resolve against it and
	// discovery scans it. Defaults to the process working directory.
	Dir string
}

// LoadError is a fatal config resolution failure.
type LoadError struct {
	Code    string
	Message string

	// Details holds one entry per validation message for ErrCodeValidation.
	Details []string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err is a LoadError with the given code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// Load resolves exactly one config and validates it in full mode.
//
// A nil error means the returned config is the sole candidate and passed
// validation. Every failure is a *LoadError; callers treat it as fatal.
func Load(opts LoadOptions) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: "cannot determine working directory", Err: err}
		}
		dir = wd
	}

	candidates, err := resolve(opts, dir)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, &LoadError{Code: ErrCodeNoConfig, Message: MsgNoConfig}
	}
	if len(candidates) > 1 {
		sources := make([]string, len(candidates))
		for i, c := range candidates {
			sources[i] = c.Source
		}
		return nil, &LoadError{Code: ErrCodeAmbiguous, Message: MsgAmbiguous, Details: sources}
	}

	cfg := candidates[0]
	if errs := Validate(cfg.Fields(), ModeFull); len(errs) > 0 {
		return nil, &LoadError{
			Code:    ErrCodeValidation,
			Message: strings.Join(errs, "\n"),
			Details: errs,
		}
	}

	slog.Debug("config resolved", "source", cfg.Source, "name", cfg.Name())
	return cfg, nil
}

func resolve(opts LoadOptions, dir string) ([]*Config, error) {
	switch {
	case opts.InlineConfig != "":
		slog.Info("using inline config")
		cfg, err := Parse([]byte(opts.InlineConfig), InlineSource)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeParse, Message: "invalid inline config", Err: err}
		}
		return []*Config{cfg}, nil

	case opts.ConfigPath != "":
		path := opts.ConfigPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		slog.Info("loading config", "path", path)
		cfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		return []*Config{cfg}, nil

	default:
		slog.Info("searching for config file", "dir", dir)
		return discover(dir)
	}
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("error reading config file: %s", path), Err: err}
	}

	cfg, err := Parse(data, path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("invalid config file: %s", path), Err: err}
	}
	return cfg, nil
}

// discover keeps only marked documents. Unparsable or unmarked files are
// incidental and skipped without failing the scan.
func discover(dir string) ([]*Config, error) {
	files, err := FindConfigFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %s", dir), Err: err}
	}

	var configs []*Config
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Debug("skipping unreadable file", "path", path, "error", err)
			continue
		}
		cfg, err := Parse(data, path)
		if err != nil {
			slog.Debug("skipping unparsable file", "path", path, "error", err)
			continue
		}
		if !cfg.HasMarker() {
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// FindConfigFiles lists *.json and *.js files directly inside dir,
// sorted by name. Subdirectories are not searched.
func FindConfigFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".json", ".js":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
