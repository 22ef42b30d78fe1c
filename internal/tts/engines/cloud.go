package engines

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/pokedex/internal/tts"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

// The API limits input to 5000 bytes; Hangul takes three bytes per rune.
const cloudMaxText = 1500

// CloudEngine implements tts.Engine using the Google Cloud Text-to-Speech
// REST API.
type CloudEngine struct {
	service      *texttospeech.Service
	voice        string
	languageCode string
	speed        float64
	pitch        float64
	volumeGain   float64
	timeout      time.Duration
}

// CloudConfig holds configuration for the Cloud engine.
type CloudConfig struct {
	// APIKey or CredentialsFile authenticate; with neither, application
	// default credentials are used.
	APIKey          string
	CredentialsFile string

	// Voice name, e.g. "ko-KR-Wavenet-A" - defaults to "ko-KR-Standard-A"
	Voice string

	// LanguageCode defaults to the voice's locale prefix
	LanguageCode string

	Speed      float64
	Pitch      float64
	VolumeGain float64

	// Endpoint overrides the API base URL
	Endpoint string

	Timeout time.Duration
}

// NewCloudEngine creates a Cloud TTS engine. Credentials are resolved here,
// so a missing ADC setup fails early.
func NewCloudEngine(ctx context.Context, config CloudConfig) (*CloudEngine, error) {
	if config.Voice == "" {
		config.Voice = "ko-KR-Standard-A"
	}
	if config.LanguageCode == "" {
		config.LanguageCode = voiceLocale(config.Voice)
	}
	if config.Speed == 0 {
		config.Speed = 1.0
	}
	if err := tts.ValidateSpeed(config.Speed); err != nil {
		return nil, err
	}
	if err := tts.ValidatePitch(config.Pitch); err != nil {
		return nil, err
	}
	if config.VolumeGain < -96 || config.VolumeGain > 16 {
		return nil, fmt.Errorf("volume gain must be between -96 and 16 dB, got %.1f", config.VolumeGain)
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	var opts []option.ClientOption
	switch {
	case config.APIKey != "":
		opts = append(opts, option.WithAPIKey(config.APIKey))
	case config.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	service, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "unable to create text-to-speech client", err)
	}

	return &CloudEngine{
		service:      service,
		voice:        config.Voice,
		languageCode: config.LanguageCode,
		speed:        tts.ToGoogleRate(config.Speed),
		pitch:        config.Pitch,
		volumeGain:   config.VolumeGain,
		timeout:      config.Timeout,
	}, nil
}

// voiceLocale returns "ko-KR" for "ko-KR-Standard-A".
func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "ko-KR"
	}
	return parts[0] + "-" + parts[1]
}

// Synthesize converts text to MP3 audio.
func (e *CloudEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := checkText(text, cloudMaxText); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: e.languageCode,
			Name:         e.voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  e.speed,
			Pitch:         e.pitch,
			VolumeGainDb:  e.volumeGain,
		},
	}

	resp, err := e.service.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, classifyCloudError(ctx, err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "invalid audio content in response", err)
	}
	if len(audio) == 0 {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "empty audio content in response", tts.ErrSynthesisFailed)
	}
	return audio, nil
}

func classifyCloudError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return tts.NewTTSError(tts.ErrorCodeEngineTimeout, "text-to-speech request timed out", err)
		}
		return tts.NewTTSError(tts.ErrorCodeCanceled, "text-to-speech request cancelled", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			// Bad credentials fail every row the same way.
			return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "text-to-speech request not authorized", err).
				WithContext("status", apiErr.Code)
		case 429:
			return tts.NewTTSError(tts.ErrorCodeResourceExhausted, "text-to-speech quota exhausted", err).
				WithContext("status", apiErr.Code)
		}
		return tts.NewTTSError(tts.ErrorCodeEngineFailure, "text-to-speech request failed", err).
			WithContext("status", apiErr.Code)
	}
	return tts.NewTTSError(tts.ErrorCodeEngineFailure, "text-to-speech request failed", err)
}

// Info returns engine capabilities.
func (e *CloudEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "cloud",
		Voice:       fmt.Sprintf("%s/%.2f/%.1f/%.1f", e.voice, e.speed, e.pitch, e.volumeGain),
		Format:      tts.FormatMP3,
		SampleRate:  24000,
		MaxTextSize: cloudMaxText,
		IsOnline:    true,
	}
}

// Validate checks the client configuration. It makes no request.
func (e *CloudEngine) Validate() error {
	if e.service == nil {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "text-to-speech client not initialized", nil)
	}
	return nil
}

// Close releases resources.
func (e *CloudEngine) Close() error {
	return nil
}
