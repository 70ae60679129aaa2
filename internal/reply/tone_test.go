package reply

import "testing"

func TestAllTones(t *testing.T) {
	tones := AllTones()
	if len(tones) != 6 {
		t.Fatalf("Expected 6 tones, got %d", len(tones))
	}
	for _, tone := range tones {
		if !tone.Valid() {
			t.Errorf("Expected %s to be valid", tone)
		}
		if tone.Label() == "" || tone.Description() == "" {
			t.Errorf("Expected %s to have a label and description", tone)
		}
		if len(tone.Examples()) < 3 {
			t.Errorf("Expected at least 3 examples for %s, got %d", tone, len(tone.Examples()))
		}
	}
}

func TestToneExamplesAreCopied(t *testing.T) {
	examples := ToneWitty.Examples()
	examples[0] = "changed"
	if ToneWitty.Examples()[0] == "changed" {
		t.Error("Expected Examples to return a copy")
	}
}

func TestParseTone(t *testing.T) {
	tests := []struct {
		input   string
		want    Tone
		wantErr bool
	}{
		{"friendly", ToneFriendly, false},
		{"CASUAL", ToneCasual, false},
		{"  Formal ", ToneFormal, false},
		{"profesional", ToneProfessional, false},
		{"flirt", ToneFlirty, false},
		{"wity", ToneWitty, false},
		{"", "", true},
		{"sarcastic", "", true},
		{"x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTone(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got tone %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
