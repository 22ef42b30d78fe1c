package sentence

import (
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple sentences",
			input:    "Hello world. How are you? I'm fine!",
			expected: []string{"Hello world.", "How are you?", "I'm fine!"},
		},
		{
			name:     "narration",
			input:    "이상해씨. 씨앗포켓몬. 풀 타입. 태어났을 때부터 등에 씨앗이 있다.",
			expected: []string{"이상해씨.", "씨앗포켓몬.", "풀 타입.", "태어났을 때부터 등에 씨앗이 있다."},
		},
		{
			name:     "newlines and spaces",
			input:    "First.\nSecond.   Third.",
			expected: []string{"First.", "Second.", "Third."},
		},
		{
			name:     "no boundary",
			input:    "피카츄 라이츄",
			expected: []string{"피카츄 라이츄"},
		},
		{
			name:     "decimal number",
			input:    "키는 0.4m이다. 몸무게는 6.0kg이다.",
			expected: []string{"키는 0.4m이다.", "몸무게는 6.0kg이다."},
		},
		{
			name:     "measurements",
			input:    "키는 0.4m이다. 몸무게는 6.0kg이다. 꼬리는 1.5m.",
			expected: []string{"키는 0.4m이다.", "몸무게는 6.0kg이다.", "꼬리는 1.5m."},
		},
		{
			name:     "initialism in parentheses",
			input:    "It was found in the (U.S. Army) base. Nobody knows why.",
			expected: []string{"It was found in the (U.S. Army) base.", "Nobody knows why."},
		},
		{
			name:     "abbreviations",
			input:    "Dr. Oak lives in the U.S. Army base. He studies Pokémon.",
			expected: []string{"Dr. Oak lives in the U.S. Army base.", "He studies Pokémon."},
		},
		{
			name:     "lowercase after stop",
			input:    "It weighs 6 kg. so it is light.",
			expected: []string{"It weighs 6 kg. so it is light."},
		},
		{
			name:     "ellipsis",
			input:    "Wait... What was that?",
			expected: []string{"Wait... What was that?"},
		},
		{
			name:     "quotes",
			input:    `He said "Pika." Then it ran.`,
			expected: []string{`He said "Pika."`, "Then it ran."},
		},
		{
			name:     "full width stops",
			input:    "ピカチュウ。でんきタイプ！",
			expected: []string{"ピカチュウ。", "でんきタイプ！"},
		},
		{
			name:     "repeated marks",
			input:    "정말?! 대단해!!",
			expected: []string{"정말?!", "대단해!!"},
		},
		{
			name:     "short fragment joins the next",
			input:    "A. Pikachu appeared.",
			expected: []string{"A. Pikachu appeared."},
		},
		{
			name:     "blank",
			input:    " \n\t ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter()
			s.MinLength = 3
			got := s.Split(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("Split(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestSplit_TrailingFragment(t *testing.T) {
	got := Split("Pikachu used Thunderbolt. 앗")
	if len(got) != 1 || got[0] != "Pikachu used Thunderbolt. 앗" {
		t.Errorf("trailing fragment should join the last sentence, got %q", got)
	}
}

func TestSplit_Rejoins(t *testing.T) {
	input := "꼬부기. 꼬마거북포켓몬. 물 타입. 등껍질에 숨어 몸을 보호한다. Dr. Oak agrees."
	if got := strings.Join(Split(input), " "); got != input {
		t.Errorf("joined sentences = %q, want %q", got, input)
	}
}
