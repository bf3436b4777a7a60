package roster

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/playperu/pacer/internal/pacer"
)

const sample = `
[[pacers]]
id = "pacer_ashley"
name = "Ashley"

[[pacers.memos]]
id = "memo_1"
name = "You got this!"
vibe = "cheerful"
duration_seconds = 8

[[pacers.tracks]]
id = "track_1"
name = "Blinding Lights"
artist = "The Weeknd"

[[pacers]]
id = "pacer_kevin"
name = "Kevin"
`

func TestParse(t *testing.T) {
	pacers, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pacers) != 2 {
		t.Fatalf("pacers = %d", len(pacers))
	}
	ashley := pacers[0]
	if ashley.Name != "Ashley" || len(ashley.Memos) != 1 || len(ashley.Tracks) != 1 {
		t.Errorf("ashley = %+v", ashley)
	}
	if m := ashley.Memos[0]; m.Vibe != pacer.VibeCheerful || m.DurationSeconds != 8 {
		t.Errorf("memo = %+v", m)
	}
	if pacers[1].ID != "pacer_kevin" || len(pacers[1].Memos) != 0 {
		t.Errorf("kevin = %+v", pacers[1])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", ``, "no pacers"},
		{"bad toml", `[[pacers]`, "parse roster"},
		{"missing id", "[[pacers]]\nname = \"A\"\n", "missing id"},
		{"duplicate", "[[pacers]]\nid = \"a\"\nname = \"A\"\n[[pacers]]\nid = \"a\"\nname = \"B\"\n", "duplicate id"},
		{"bad vibe", "[[pacers]]\nid = \"a\"\nname = \"A\"\n[[pacers.memos]]\nid = \"m\"\nvibe = \"sleepy\"\n", "unknown vibe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
	if _, err := Parse(nil); !errors.Is(err, ErrEmptyRoster) {
		t.Errorf("err = %v, want ErrEmptyRoster", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.toml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	pacers, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pacers) != 2 {
		t.Errorf("pacers = %d", len(pacers))
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("Load of a missing file succeeded")
	}
}

func TestSelect(t *testing.T) {
	demo := Demo()
	got, err := Select(demo, []string{"pacer_kevin", "pacer_ashley"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got[0].Name != "Kevin" || got[1].Name != "Ashley" {
		t.Errorf("order = %s, %s", got[0].Name, got[1].Name)
	}
	if _, err := Select(demo, []string{"nobody"}); !errors.Is(err, ErrUnknownPacer) {
		t.Errorf("err = %v, want ErrUnknownPacer", err)
	}
}

func TestDemoIsValid(t *testing.T) {
	if err := Validate(Demo()); err != nil {
		t.Fatalf("demo roster invalid: %v", err)
	}
}
