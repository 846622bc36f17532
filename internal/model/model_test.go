package model

import (
	"errors"
	"testing"
)

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{name: "valid", event: Event{Title: "Parents evening", Date: "2025-10-09"}},
		{name: "leap day", event: Event{Title: "Leap", Date: "2024-02-29"}},
		{name: "empty title", event: Event{Title: "  ", Date: "2025-10-09"}, wantErr: true},
		{name: "bad date", event: Event{Title: "Trip", Date: "13/45/2025"}, wantErr: true},
		{name: "impossible day", event: Event{Title: "Trip", Date: "2025-02-29"}, wantErr: true},
		{name: "missing date", event: Event{Title: "Trip"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEvent) {
					t.Fatalf("Validate() err = %v, want ErrInvalidEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(): %v", err)
			}
		})
	}
}

func TestEventNormalize(t *testing.T) {
	e := Event{Title: "  Sports day ", Date: " 2025-06-20\n", Notes: " keep "}
	e.Normalize()
	if e.Title != "Sports day" || e.Date != "2025-06-20" {
		t.Fatalf("Normalize() = %+v", e)
	}
	if e.Notes != " keep " {
		t.Fatalf("notes changed to %q", e.Notes)
	}
}
