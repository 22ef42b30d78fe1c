package pokedex

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultTypeSuffix is the word appended to a bare type tag ("노말" becomes
// "노말 타입").
const DefaultTypeSuffix = "타입"

// sentenceSep joins the spoken fields.
const sentenceSep = ". "

// NormalizeType appends suffix to t unless t already ends with it.
// Applying it twice gives the same result as applying it once.
func NormalizeType(t, suffix string) string {
	t = strings.TrimSpace(t)
	if suffix == "" {
		suffix = DefaultTypeSuffix
	}
	if t == "" || strings.HasSuffix(t, suffix) {
		return t
	}
	return t + " " + suffix
}

// Narration builds the sentence spoken for r. The number is never read out;
// it only orders the output files.
func Narration(r Record, suffix string) string {
	if r.Name == "" && r.Category == "" && r.Type == "" {
		return r.Description
	}
	return strings.Join([]string{
		r.Name,
		r.Category,
		NormalizeType(r.Type, suffix),
		r.Description,
	}, sentenceSep)
}

// fileReplacer strips characters that are unsafe in file names on common
// filesystems.
var fileReplacer = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_", "\x00", "_",
)

// Filename returns the output file name for r, "{number}_{name}.{ext}".
// Records without a number fall back to their zero-padded row index.
func Filename(r Record, ext string) string {
	ext = strings.TrimPrefix(ext, ".")

	var base string
	switch {
	case r.Number != "" && r.Name != "":
		base = r.Number + "_" + r.Name
	case r.Number != "":
		base = r.Number
	case r.Name != "":
		base = fmt.Sprintf("%04d_%s", r.Row, r.Name)
	default:
		base = fmt.Sprintf("%04d", r.Row)
	}

	base = norm.NFC.String(strings.TrimSpace(fileReplacer.Replace(base)))
	if base == "." || base == ".." {
		base = fmt.Sprintf("%04d", r.Row)
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// Filenames returns the output name of every record, all distinct. A name
// already taken by an earlier record gets the row appended, as in
// "25_피카츄_3.mp3", then a counter while that is taken too.
func Filenames(records []Record, ext string) []string {
	used := make(map[string]bool, len(records))
	names := make([]string, len(records))
	for i, r := range records {
		name := Filename(r, ext)
		for n := 1; used[name]; n++ {
			alt := r
			alt.Name = fmt.Sprintf("%s_%d", r.Name, r.Row)
			if n > 1 {
				alt.Name = fmt.Sprintf("%s_%d", alt.Name, n)
			}
			name = Filename(alt, ext)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
