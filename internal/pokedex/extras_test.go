package pokedex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFilter(t *testing.T) {
	list := []Record{
		{Number: "1", Name: "이상해씨", Row: 1},
		{Number: "4", Name: "파이리", Row: 2},
		{Number: "25", Name: "피카츄", Row: 3},
		{Number: "26", Name: "라이츄", Row: 4},
	}

	tests := []struct {
		query string
		want  []int
	}{
		{"", []int{1, 2, 3, 4}},
		{"피카츄", []int{3}},
		{"츄", []int{3, 4}},
		{"25", []int{3}},
		{"뮤츠", nil},
	}

	for _, tt := range tests {
		got := Filter(list, tt.query)
		if len(got) != len(tt.want) {
			t.Errorf("Filter(%q) returned %d records, want %d", tt.query, len(got), len(tt.want))
			continue
		}
		for i, row := range tt.want {
			if got[i].Row != row {
				t.Errorf("Filter(%q)[%d].Row = %d, want %d", tt.query, i, got[i].Row, row)
			}
		}
	}
}

func TestFilter_Headerless(t *testing.T) {
	list := []Record{{Description: "불꽃 포켓몬", Row: 1}, {Description: "물 포켓몬", Row: 2}}
	if got := Filter(list, "불꽃"); len(got) != 1 || got[0].Row != 1 {
		t.Errorf("unexpected match: %+v", got)
	}
}

func TestLoadRecords_NormalizesHangul(t *testing.T) {
	// "피카츄" spelled with conjoining jamo
	decomposed := "\u1111\u1175\u110f\u1161\u110e\u1172"
	path := writeFile(t, "nfd.csv", "번호,이름,분류,타입,설명\n25,"+decomposed+",쥐포켓몬,전기,볼에 전기 주머니가 있다.\n")

	records, err := LoadRecords(path, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}
	if records[0].Name != "피카츄" {
		t.Errorf("name not composed: %q", records[0].Name)
	}
	if got := Filename(records[0], "mp3"); got != "25_피카츄.mp3" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestFindInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.xlsx", "notes.txt", "~$a.xlsx"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := FindInputs(dir)
	if err != nil {
		t.Fatalf("FindInputs failed: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "a.xlsx" || filepath.Base(paths[1]) != "b.csv" {
		t.Errorf("paths = %v", paths)
	}

	if _, err := FindInputs(t.TempDir()); !errors.Is(err, ErrInputNotFound) {
		t.Errorf("expected ErrInputNotFound for empty dir, got %v", err)
	}
}

func TestLoadAll(t *testing.T) {
	a := writeFile(t, "a.csv", sampleCSV)
	b := writeFile(t, "b.csv", "x\ny\n")

	records, err := LoadAll([]string{a}, LoadOptions{})
	if err != nil || len(records) != 2 {
		t.Fatalf("LoadAll = %d records, %v", len(records), err)
	}

	if _, err := LoadAll([]string{a, b}, LoadOptions{}); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn from the second file, got %v", err)
	}
	if _, err := LoadAll(nil, LoadOptions{}); err == nil {
		t.Error("expected error without inputs")
	}
}

func TestWatch(t *testing.T) {
	path := writeFile(t, "pokemon.csv", sampleCSV)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() error {
			runs.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register, then write a few times in a burst.
	time.Sleep(200 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files in the same directory are ignored
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(settle * 2)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
	if n := runs.Load(); n != 1 {
		t.Errorf("onChange ran %d times, want 1 for a burst of writes", n)
	}
}
