package tts

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ValidationResult contains the result of engine validation
type ValidationResult struct {
	// Engine is the validated engine type
	Engine EngineType

	// Available indicates if the engine is available and configured
	Available bool

	// Error contains any validation error
	Error error

	// Guidance provides setup instructions if validation failed
	Guidance string

	// Details contains additional validation information
	Details map[string]string
}

// ValidateEngineSelection validates that a TTS engine has been explicitly chosen.
// It checks the CLI argument first, then config, and requires explicit selection.
// Returns ErrNoEngineConfigured if no engine is selected.
func ValidateEngineSelection(cliArg string, config Config) (EngineType, error) {
	// 1. CLI argument takes precedence
	engineType := strings.ToLower(strings.TrimSpace(cliArg))

	// 2. Use config if no CLI arg
	if engineType == "" {
		engineType = strings.ToLower(string(config.Engine))
	}

	// 3. Require explicit selection
	if engineType == "" {
		return EngineNone, fmt.Errorf("%w\n\nPlease specify an engine:\n  pokedex narrate --engine gtts pokemon.csv    # Google Translate voice (online)\n  pokedex narrate --engine edge pokemon.csv    # Edge neural voice (online)\n  pokedex narrate --engine piper lines.xlsx    # Piper (offline)\n\nOr set a default in the config file:\n  tts:\n    engine: gtts", ErrNoEngineConfigured)
	}

	// 4. Validate engine type (normalize aliases)
	switch engineType {
	case "gtts", "google":
		return EngineGTTS, nil
	case "edge", "edge-tts":
		return EngineEdge, nil
	case "piper", "local":
		return EnginePiper, nil
	case "cloud", "gcloud", "google-cloud":
		return EngineCloud, nil
	case "mock":
		return EngineMock, nil
	default:
		return EngineNone, fmt.Errorf("%w: %s\n\nSupported engines:\n  - gtts (Google Translate TTS)\n  - edge (Microsoft Edge TTS)\n  - piper (offline TTS)\n  - cloud (Google Cloud Text-to-Speech)", ErrInvalidEngine, engineType)
	}
}

// ValidateConfig checks the engine-independent configuration values.
func ValidateConfig(config Config) error {
	var errs []error

	if err := ValidateSpeed(config.Speed); err != nil {
		errs = append(errs, err)
	}
	if err := ValidatePitch(config.Pitch); err != nil {
		errs = append(errs, err)
	}
	if config.Output.Delay < 0 {
		errs = append(errs, fmt.Errorf("output delay cannot be negative, got %s", config.Output.Delay))
	}
	if config.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative, got %s", config.Timeout))
	}
	if config.Cache.Enabled && (config.Cache.MaxSize < 1 || config.Cache.MaxSize > 10000) {
		errs = append(errs, fmt.Errorf("cache max_size must be between 1 and 10000 MB, got %d", config.Cache.MaxSize))
	}
	if lang := config.Language; len(lang) < 2 || len(lang) > 10 {
		errs = append(errs, fmt.Errorf("language code must be 2-10 characters, got %q", lang))
	}

	return errors.Join(errs...)
}

// ValidateEngine checks that the external pieces an engine depends on are
// present. It performs no synthesis.
func ValidateEngine(engineType EngineType, config Config) *ValidationResult {
	result := &ValidationResult{
		Engine:  engineType,
		Details: make(map[string]string),
	}

	switch engineType {
	case EngineGTTS:
		result.Details["engine"] = "gTTS (Google Translate, online)"
		checkBinary(result, config.GTTS.Binary, "Install with: pip install gTTS")
	case EngineEdge:
		result.Details["engine"] = "Edge TTS (online)"
		checkBinary(result, config.Edge.Binary, "Install with: pip install edge-tts")
	case EnginePiper:
		result.Details["engine"] = "Piper (offline)"
		if !checkBinary(result, config.Piper.Binary, "Download Piper from https://github.com/rhasspy/piper/releases") {
			return result
		}
		if config.Piper.ModelPath == "" {
			result.Available = false
			result.Error = errors.New("piper model path not configured")
			result.Guidance = "Set tts.piper.model to a voice model, e.g. ko_KR-kss-medium.onnx"
			return result
		}
		if _, err := os.Stat(config.Piper.ModelPath); err != nil {
			result.Available = false
			result.Error = fmt.Errorf("model file not accessible: %w", err)
			result.Guidance = "Check that the model path exists and is readable"
			return result
		}
		result.Details["model_path"] = config.Piper.ModelPath
	case EngineCloud:
		result.Details["engine"] = "Google Cloud Text-to-Speech (online)"
		result.Available = true
		switch {
		case config.Cloud.APIKey != "":
			result.Details["auth"] = "api key"
		case config.Cloud.CredentialsFile != "":
			result.Details["auth"] = "service account"
		default:
			result.Details["auth"] = "application default credentials"
		}
	case EngineMock:
		result.Details["engine"] = "Mock (silent audio)"
		result.Available = true
	case EngineNone:
		result.Error = ErrNoEngineConfigured
		result.Guidance = "Please specify a TTS engine with --engine or in the config file"
	default:
		result.Error = fmt.Errorf("%w: %s", ErrInvalidEngine, engineType)
		result.Guidance = "Supported engines: gtts, edge, piper, cloud"
	}

	return result
}

func checkBinary(result *ValidationResult, binary, guidance string) bool {
	path, err := exec.LookPath(binary)
	if err != nil {
		result.Available = false
		result.Error = fmt.Errorf("%s not found in PATH: %w", binary, err)
		result.Guidance = guidance
		return false
	}
	result.Details["binary_path"] = path
	result.Available = true
	return true
}
