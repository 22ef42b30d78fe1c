package engines

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/pokedex/internal/tts"
	"github.com/go-audio/wav"
)

// fakeTool writes an executable shell script named name into a fresh
// directory and prepends it to PATH.
func fakeTool(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil { //nolint:gosec
		t.Fatalf("failed to write fake %s: %v", name, err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return path
}

func errorCode(err error) tts.ErrorCode {
	var ttsErr *tts.TTSError
	if errors.As(err, &ttsErr) {
		return ttsErr.Code
	}
	return ""
}

func TestGTTSEngine_Synthesize(t *testing.T) {
	// Echo the arguments and stdin so the test can see both.
	fakeTool(t, "gtts-cli", `echo "ID3 $*"; cat`)

	engine, err := NewGTTSEngine(GTTSConfig{Language: "ko", TLD: "co.kr", Slow: true})
	if err != nil {
		t.Fatalf("NewGTTSEngine failed: %v", err)
	}

	audio, err := engine.Synthesize(context.Background(), "피카츄. 쥐포켓몬.")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	out := string(audio)
	for _, want := range []string{"ID3", "--lang ko", "--tld co.kr", "--slow", "--output -", "피카츄. 쥐포켓몬."} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestGTTSEngine_Info(t *testing.T) {
	fast, _ := NewGTTSEngine(GTTSConfig{})
	slow, _ := NewGTTSEngine(GTTSConfig{Slow: true})

	info := fast.Info()
	if info.Name != "gtts" || info.Format != tts.FormatMP3 || !info.IsOnline {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.Voice == slow.Info().Voice {
		t.Error("slow mode should change the voice identity")
	}
}

func TestGTTSEngine_Errors(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		text     string
		timeout  time.Duration
		wantCode tts.ErrorCode
		wantText string
	}{
		{
			name:     "empty text",
			script:   "exit 0",
			text:     "   ",
			wantCode: tts.ErrorCodeInvalidInput,
		},
		{
			name:     "text too long",
			script:   "exit 0",
			text:     strings.Repeat("가", gttsMaxText+1),
			wantCode: tts.ErrorCodeTextTooLong,
		},
		{
			name:     "process failure",
			script:   `echo "boom" >&2; exit 1`,
			text:     "hello",
			wantCode: tts.ErrorCodeEngineFailure,
		},
		{
			name:     "rate limited",
			script:   `echo "429 (Too Many Requests)" >&2; exit 1`,
			text:     "hello",
			wantCode: tts.ErrorCodeEngineFailure,
			wantText: "rate limited",
		},
		{
			name:     "no audio",
			script:   "exit 0",
			text:     "hello",
			wantCode: tts.ErrorCodeEngineFailure,
		},
		{
			name:     "timeout",
			script:   "exec sleep 5",
			text:     "hello",
			timeout:  200 * time.Millisecond,
			wantCode: tts.ErrorCodeEngineTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeTool(t, "gtts-cli", tt.script)
			engine, err := NewGTTSEngine(GTTSConfig{Timeout: tt.timeout})
			if err != nil {
				t.Fatalf("NewGTTSEngine failed: %v", err)
			}

			_, err = engine.Synthesize(context.Background(), tt.text)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errorCode(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", got, tt.wantCode, err)
			}
			if tt.wantText != "" && !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error %q missing %q", err, tt.wantText)
			}
		})
	}
}

func TestMissingBinaryIsFatal(t *testing.T) {
	engine, err := NewGTTSEngine(GTTSConfig{Binary: "pokedex-no-such-tool"})
	if err != nil {
		t.Fatalf("NewGTTSEngine failed: %v", err)
	}

	if err := engine.Validate(); err == nil {
		t.Error("Validate should fail for a missing binary")
	}

	_, err = engine.Synthesize(context.Background(), "hello")
	if !tts.IsFatal(err) {
		t.Errorf("missing binary should be fatal, got %v", err)
	}
}

func TestOversizedOutputSkipsRow(t *testing.T) {
	fakeTool(t, "gtts-cli", `echo "ID3 far more audio than allowed"`)

	saved := maxOutputSize
	maxOutputSize = 16
	t.Cleanup(func() { maxOutputSize = saved })

	engine, err := NewGTTSEngine(GTTSConfig{})
	if err != nil {
		t.Fatalf("NewGTTSEngine failed: %v", err)
	}

	_, err = engine.Synthesize(context.Background(), "피카츄")
	if code := errorCode(err); code != tts.ErrorCodeEngineFailure {
		t.Fatalf("code = %q, want %q (err %v)", code, tts.ErrorCodeEngineFailure, err)
	}
	if tts.IsFatal(err) {
		t.Error("an oversized row must not stop the batch")
	}
}

func TestCommandCancelled(t *testing.T) {
	fakeTool(t, "slow-tool", "exec sleep 5")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := command{name: "slow-tool", timeout: time.Minute}.run(ctx)
	if got := errorCode(err); got != tts.ErrorCodeCanceled {
		t.Errorf("code = %s, want %s", got, tts.ErrorCodeCanceled)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("cancellation took too long: %s", elapsed)
	}
}

func TestEdgeEngine_Synthesize(t *testing.T) {
	// Find the --write-media target and put the arguments into it.
	fakeTool(t, "edge-tts", `
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "--write-media" ]; then out="$a"; fi
  prev="$a"
done
text=$(cat)
echo "$* $text" > "$out"
`)

	engine, err := NewEdgeEngine(EdgeConfig{Speed: 1.25, Pitch: -1, TempDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewEdgeEngine failed: %v", err)
	}

	audio, err := engine.Synthesize(context.Background(), "이상해씨")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	out := string(audio)
	for _, want := range []string{"--voice=ko-KR-SunHiNeural", "--rate=+25%", "--pitch=-12Hz", "--volume=+0%", "--file -", "이상해씨"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestEdgeEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config EdgeConfig
	}{
		{"speed too high", EdgeConfig{Speed: 3}},
		{"pitch too low", EdgeConfig{Pitch: -30}},
		{"volume out of range", EdgeConfig{Volume: 150}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEdgeEngine(tt.config); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPiperEngine_Synthesize(t *testing.T) {
	// Four 16-bit little-endian samples: 1, 2, -1, 0
	fakeTool(t, "piper", `cat > /dev/null; printf '\001\000\002\000\377\377\000\000'`)

	dir := t.TempDir()
	model := filepath.Join(dir, "ko_KR-test.onnx")
	if err := os.WriteFile(model, []byte("model"), 0o644); err != nil { //nolint:gosec
		t.Fatal(err)
	}
	if err := os.WriteFile(model+".json", []byte(`{"audio":{"sample_rate":16000}}`), 0o644); err != nil { //nolint:gosec
		t.Fatal(err)
	}

	engine, err := NewPiperEngine(PiperConfig{ModelPath: model, TempDir: dir})
	if err != nil {
		t.Fatalf("NewPiperEngine failed: %v", err)
	}
	if got := engine.Info().SampleRate; got != 16000 {
		t.Errorf("SampleRate = %d, want 16000 from model config", got)
	}

	audio, err := engine.Synthesize(context.Background(), "꼬부기")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	dec := wav.NewDecoder(bytes.NewReader(audio))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := []int{1, 2, -1, 0}
	if len(buf.Data) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(want))
	}
	for i, s := range want {
		if buf.Data[i] != s {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
	if int(dec.SampleRate) != 16000 {
		t.Errorf("wav sample rate = %d, want 16000", dec.SampleRate)
	}
}

func TestPiperEngine_Args(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "voice.onnx")
	if err := os.WriteFile(model, []byte("model"), 0o644); err != nil { //nolint:gosec
		t.Fatal(err)
	}

	engine, err := NewPiperEngine(PiperConfig{ModelPath: model, SpeakerID: 3, Speed: 2})
	if err != nil {
		t.Fatalf("NewPiperEngine failed: %v", err)
	}
	if engine.Info().SampleRate != piperDefaultSampleRate {
		t.Errorf("expected default sample rate without a model config")
	}

	args := strings.Join(engine.args(), " ")
	for _, want := range []string{"--model " + model, "--output-raw", "--length-scale 0.50", "--speaker 3"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	if strings.Contains(args, "--config") {
		t.Errorf("args %q should not reference a missing config", args)
	}
}

func TestPiperEngine_MissingModel(t *testing.T) {
	if _, err := NewPiperEngine(PiperConfig{}); err == nil {
		t.Error("expected error without model path")
	}
	if _, err := NewPiperEngine(PiperConfig{ModelPath: "/nonexistent/model.onnx"}); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestCloudEngine_Synthesize(t *testing.T) {
	var got struct {
		Input struct {
			Text string `json:"text"`
		} `json:"input"`
		Voice struct {
			LanguageCode string `json:"languageCode"`
			Name         string `json:"name"`
		} `json:"voice"`
		AudioConfig struct {
			AudioEncoding string  `json:"audioEncoding"`
			SpeakingRate  float64 `json:"speakingRate"`
		} `json:"audioConfig"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "text:synthesize") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key, query %q", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("ID3 cloud")),
		})
	}))
	defer srv.Close()

	engine, err := NewCloudEngine(context.Background(), CloudConfig{
		APIKey:   "test-key",
		Voice:    "ko-KR-Wavenet-A",
		Speed:    1.5,
		Endpoint: srv.URL + "/",
	})
	if err != nil {
		t.Fatalf("NewCloudEngine failed: %v", err)
	}

	audio, err := engine.Synthesize(context.Background(), "파이리")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(audio) != "ID3 cloud" {
		t.Errorf("audio = %q", audio)
	}
	if got.Input.Text != "파이리" || got.Voice.Name != "ko-KR-Wavenet-A" || got.Voice.LanguageCode != "ko-KR" {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.AudioConfig.AudioEncoding != "MP3" || got.AudioConfig.SpeakingRate != 1.5 {
		t.Errorf("unexpected audio config: %+v", got.AudioConfig)
	}
}

func TestCloudEngine_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCode  tts.ErrorCode
		wantFatal bool
	}{
		{"forbidden", http.StatusForbidden, tts.ErrorCodeEngineUnavailable, true},
		{"quota", http.StatusTooManyRequests, tts.ErrorCodeResourceExhausted, true},
		{"bad request", http.StatusBadRequest, tts.ErrorCodeEngineFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope"}}`, tt.status)
			}))
			defer srv.Close()

			engine, err := NewCloudEngine(context.Background(), CloudConfig{APIKey: "k", Endpoint: srv.URL + "/"})
			if err != nil {
				t.Fatalf("NewCloudEngine failed: %v", err)
			}

			_, err = engine.Synthesize(context.Background(), "hello")
			if got := errorCode(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", got, tt.wantCode, err)
			}
			if tts.IsFatal(err) != tt.wantFatal {
				t.Errorf("IsFatal = %v, want %v", tts.IsFatal(err), tt.wantFatal)
			}
		})
	}
}

func TestVoiceLocale(t *testing.T) {
	tests := map[string]string{
		"ko-KR-Standard-A": "ko-KR",
		"en-US-Wavenet-D":  "en-US",
		"weird":            "ko-KR",
	}
	for voice, want := range tests {
		if got := voiceLocale(voice); got != want {
			t.Errorf("voiceLocale(%q) = %q, want %q", voice, got, want)
		}
	}
}

func TestMockEngine(t *testing.T) {
	engine := NewMockEngine()

	a, err := engine.Synthesize(context.Background(), "피카츄")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	b, _ := engine.Synthesize(context.Background(), "피카츄")
	if !bytes.Equal(a, b) {
		t.Error("mock audio should be deterministic")
	}
	if !wav.NewDecoder(bytes.NewReader(a)).IsValidFile() {
		t.Error("mock audio should be a valid WAV file")
	}
	if calls := engine.Calls(); len(calls) != 2 {
		t.Errorf("Calls = %d, want 2", len(calls))
	}

	engine.FailWith = func(text string) error {
		if text == "fail" {
			return tts.NewTTSError(tts.ErrorCodeEngineFailure, "forced", nil)
		}
		return nil
	}
	if _, err := engine.Synthesize(context.Background(), "fail"); err == nil {
		t.Error("expected forced failure")
	}
}

func TestNew(t *testing.T) {
	config := tts.DefaultConfig()

	engine, err := New(context.Background(), tts.EngineMock, config)
	if err != nil {
		t.Fatalf("New(mock) failed: %v", err)
	}
	if engine.Info().Name != "mock" {
		t.Errorf("got engine %q", engine.Info().Name)
	}

	engine, err = New(context.Background(), tts.EngineGTTS, config)
	if err != nil {
		t.Fatalf("New(gtts) failed: %v", err)
	}
	if engine.Info().Name != "gtts" {
		t.Errorf("got engine %q", engine.Info().Name)
	}

	if _, err := New(context.Background(), tts.EngineNone, config); !errors.Is(err, tts.ErrNoEngineConfigured) {
		t.Errorf("expected ErrNoEngineConfigured, got %v", err)
	}
	if _, err := New(context.Background(), tts.EngineType("espeak"), config); !errors.Is(err, tts.ErrInvalidEngine) {
		t.Errorf("expected ErrInvalidEngine, got %v", err)
	}

	config.Speed = 5
	if _, err := New(context.Background(), tts.EngineMock, config); err == nil {
		t.Error("expected invalid speed to be rejected")
	}
}
