package engines

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/pokedex/internal/tts"
)

// New creates the engine selected by engineType from the shared config.
func New(ctx context.Context, engineType tts.EngineType, config tts.Config) (tts.Engine, error) {
	if err := tts.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid tts configuration: %w", err)
	}

	switch engineType {
	case tts.EngineGTTS:
		slow := config.GTTS.Slow || tts.ToGTTSSlow(config.Speed)
		return NewGTTSEngine(GTTSConfig{
			Binary:   config.GTTS.Binary,
			Language: config.Language,
			TLD:      config.GTTS.TLD,
			Slow:     slow,
			Timeout:  config.Timeout,
		})
	case tts.EngineEdge:
		return NewEdgeEngine(EdgeConfig{
			Binary:  config.Edge.Binary,
			Voice:   config.Edge.Voice,
			Speed:   config.Speed,
			Pitch:   config.Pitch,
			Volume:  config.Edge.Volume,
			TempDir: config.TempDir,
			Timeout: config.Timeout,
		})
	case tts.EnginePiper:
		return NewPiperEngine(PiperConfig{
			Binary:     config.Piper.Binary,
			ModelPath:  config.Piper.ModelPath,
			ConfigPath: config.Piper.ConfigPath,
			SpeakerID:  config.Piper.SpeakerID,
			SampleRate: config.Piper.SampleRate,
			Speed:      config.Speed,
			TempDir:    config.TempDir,
			Timeout:    config.Timeout,
		})
	case tts.EngineCloud:
		return NewCloudEngine(ctx, CloudConfig{
			APIKey:          config.Cloud.APIKey,
			CredentialsFile: config.Cloud.CredentialsFile,
			Voice:           config.Cloud.Voice,
			Speed:           config.Speed,
			Pitch:           config.Pitch,
			VolumeGain:      config.Cloud.VolumeGain,
			Endpoint:        config.Cloud.Endpoint,
			Timeout:         config.Timeout,
		})
	case tts.EngineMock:
		return NewMockEngine(), nil
	case tts.EngineNone:
		return nil, tts.ErrNoEngineConfigured
	default:
		return nil, fmt.Errorf("%w: %s", tts.ErrInvalidEngine, engineType)
	}
}
