package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/pokedex/internal/audio"
	"github.com/dgnsrekt/pokedex/internal/pokedex"
	"github.com/dgnsrekt/pokedex/internal/tts"
	"github.com/dgnsrekt/pokedex/internal/tts/engines"
)

func TestSummaryMarkdown(t *testing.T) {
	s := tts.Summary{
		Total:      3,
		Written:    2,
		Cached:     1,
		Failed:     1,
		AudioBytes: 2048,
		Failures: []tts.RowFailure{
			{Row: 4, Name: "파이리", Err: errors.New("engine said a|b")},
		},
	}

	md := summaryMarkdown(s, 1500*time.Millisecond, "out")
	for _, want := range []string{
		"| Rows | 3 |",
		"| Written | 2 (2.0 kB) |",
		"| From cache | 1 |",
		"| Failed | 1 |",
		"| Time | 1.5s |",
		"## Failures",
		`| 4 | 파이리 | engine said a\|b |`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("summary missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Skipped") {
		t.Error("zero skipped rows should be omitted")
	}
}

func TestPlanMarkdown(t *testing.T) {
	records := []pokedex.Record{
		{Number: "25", Name: "피카츄", Category: "쥐포켓몬", Type: "전기", Description: strings.Repeat("볼에 전기 주머니가 있다. ", 10), Row: 2},
		{Number: "25", Name: "피카츄", Category: "쥐포켓몬", Type: "전기", Description: "b", Row: 3},
	}

	md := planMarkdown(records, "mp3", pokedex.DefaultTypeSuffix)
	if !strings.HasPrefix(md, "# 2 rows") {
		t.Errorf("unexpected heading:\n%s", md)
	}
	if !strings.Contains(md, "| 25_피카츄.mp3 | 피카츄. 쥐포켓몬. 전기 타입.") {
		t.Errorf("first row missing:\n%s", md)
	}
	if !strings.Contains(md, "…") {
		t.Error("long narration should be truncated")
	}
	if !strings.Contains(md, "| 25_피카츄_3.mp3 | 피카츄. 쥐포켓몬. 전기 타입. b |") {
		t.Errorf("duplicate row should get a distinct file:\n%s", md)
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a|b", `a\|b`},
		{"line\none\t two", "line one two"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cell(tt.in); got != tt.want {
			t.Errorf("cell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInputPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.xlsx", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("default", func(t *testing.T) {
		got, err := inputPaths(nil, "pokemon.csv")
		if err != nil || len(got) != 1 || got[0] != "pokemon.csv" {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(dir, "b.csv")
		got, err := inputPaths([]string{path}, "pokemon.csv")
		if err != nil || len(got) != 1 || got[0] != path {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		got, err := inputPaths([]string{dir}, "pokemon.csv")
		if err != nil {
			t.Fatalf("inputPaths failed: %v", err)
		}
		want := []string{filepath.Join(dir, "a.xlsx"), filepath.Join(dir, "b.csv")}
		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		if _, err := inputPaths([]string{t.TempDir()}, ""); !errors.Is(err, pokedex.ErrInputNotFound) {
			t.Errorf("expected ErrInputNotFound, got %v", err)
		}
	})
}

func TestSpeak(t *testing.T) {
	data, err := engines.NewMockEngine().Synthesize(context.Background(), "피카츄")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	player := audio.NewMockPlayer()
	if err := speak(context.Background(), player, data); err != nil {
		t.Fatalf("speak failed: %v", err)
	}
	if len(player.Played()) != 1 {
		t.Fatalf("played %d clips, want 1", len(player.Played()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := speak(ctx, player, data); err != nil {
		t.Errorf("cancelled playback should not be an error, got %v", err)
	}

	if err := speak(context.Background(), player, []byte("ID3")); !errors.Is(err, audio.ErrNotWAV) {
		t.Errorf("expected ErrNotWAV, got %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	c := defaultConfig()
	if c.Input != "pokemon_1_to_898.csv" || c.TTS.Output.Dir != "pokemon_tts_output" {
		t.Errorf("unexpected paths: %q %q", c.Input, c.TTS.Output.Dir)
	}
	if c.Vision.Model != "pokemon.onnx" || c.Vision.Labels != "labels.txt" {
		t.Errorf("unexpected model files: %q %q", c.Vision.Model, c.Vision.Labels)
	}
	if c.Vision.Threshold != 0.5 || c.Vision.Top != 3 {
		t.Errorf("unexpected vision defaults: %+v", c.Vision)
	}
}

func TestRender_Plain(t *testing.T) {
	var buf bytes.Buffer
	if err := render(&buf, "# Title\n\nbody"); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "body") {
		t.Errorf("rendered output lost the body: %q", buf.String())
	}
}

func TestSpeakAll(t *testing.T) {
	engine := engines.NewMockEngine()
	engine.FailWith = func(text string) error {
		if text == "실패." {
			return tts.NewTTSError(tts.ErrorCodeEngineFailure, "boom", nil)
		}
		return nil
	}
	player := audio.NewMockPlayer()

	sentences := []string{"피카츄.", "실패.", "라이츄."}
	if err := speakAll(context.Background(), engine, player, sentences, 1); err != nil {
		t.Fatalf("speakAll failed: %v", err)
	}
	if n := len(player.Played()); n != 2 {
		t.Errorf("played %d clips, want 2", n)
	}

	engine.FailWith = func(string) error {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "gone", nil)
	}
	if err := speakAll(context.Background(), engine, player, sentences, 2); !tts.IsFatal(err) {
		t.Errorf("expected a fatal error, got %v", err)
	}
}

func TestOpenCache(t *testing.T) {
	c, err := openCache(tts.CacheConfig{Dir: t.TempDir(), MaxSize: 1, Memory: 1})
	if err != nil {
		t.Fatalf("openCache failed: %v", err)
	}
	defer c.Close() //nolint:errcheck

	if err := c.Put("k", []byte("audio")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got, ok := c.Get("k"); !ok || string(got) != "audio" {
		t.Errorf("Get = %q, %v", got, ok)
	}
	if mem, _ := c.Stats(); mem.ItemCount != 1 {
		t.Errorf("memory tier should hold the entry, got %+v", mem)
	}
}
