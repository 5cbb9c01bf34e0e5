package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestApply(t *testing.T) {
	t.Cleanup(func() { _ = Apply("default") })

	tests := []struct {
		name    string
		wantErr bool
	}{
		{"", false},
		{"default", false},
		{"mono", false},
		{"neon", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Apply(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Apply(%q) err = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestApplyRebuildsStyles(t *testing.T) {
	t.Cleanup(func() { _ = Apply("default") })

	if err := Apply("mono"); err != nil {
		t.Fatal(err)
	}
	if _, ok := ColorBlue.(lipgloss.NoColor); !ok {
		t.Errorf("ColorBlue = %T, want NoColor", ColorBlue)
	}
	if _, ok := TimerStyle.GetForeground().(lipgloss.NoColor); !ok {
		t.Errorf("TimerStyle foreground = %T, want NoColor", TimerStyle.GetForeground())
	}

	if err := Apply("default"); err != nil {
		t.Fatal(err)
	}
	if _, ok := ColorBlue.(lipgloss.AdaptiveColor); !ok {
		t.Errorf("ColorBlue = %T, want AdaptiveColor", ColorBlue)
	}
}
