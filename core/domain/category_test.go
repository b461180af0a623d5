package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeCategoryNames(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "case insensitive dedup keeps first casing",
			in:   []string{"Work", "work", "WORK", "Meeting"},
			want: []string{"Work", "Meeting"},
		},
		{
			name: "trims whitespace before dedup",
			in:   []string{"  Admin ", "admin", "Travel"},
			want: []string{"Admin", "Travel"},
		},
		{
			name: "drops empty and whitespace only entries",
			in:   []string{"", "  ", "Focus"},
			want: []string{"Focus"},
		},
		{
			name: "preserves first seen order",
			in:   []string{"B", "A", "b", "C", "a"},
			want: []string{"B", "A", "C"},
		},
		{
			name: "nil for empty input",
			in:   nil,
			want: nil,
		},
		{
			name: "nil when everything is blank",
			in:   []string{"", "   "},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeCategoryNames(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("NormalizeCategoryNames(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDiffCategories(t *testing.T) {
	tests := []struct {
		name        string
		existing    []string
		next        []string
		wantAdded   []string
		wantRemoved []string
	}{
		{
			name:        "no change",
			existing:    []string{"Work", "Meeting"},
			next:        []string{"Work", "Meeting"},
			wantAdded:   nil,
			wantRemoved: nil,
		},
		{
			name:        "case difference is not a change",
			existing:    []string{"Work"},
			next:        []string{"WORK"},
			wantAdded:   nil,
			wantRemoved: nil,
		},
		{
			name:        "pure addition",
			existing:    []string{"Work"},
			next:        []string{"Work", "Travel"},
			wantAdded:   []string{"Travel"},
			wantRemoved: nil,
		},
		{
			name:        "pure removal",
			existing:    []string{"Work", "Travel"},
			next:        []string{"Work"},
			wantAdded:   nil,
			wantRemoved: []string{"Travel"},
		},
		{
			name:        "full replacement",
			existing:    []string{"Old"},
			next:        []string{"New"},
			wantAdded:   []string{"New"},
			wantRemoved: []string{"Old"},
		},
		{
			name:        "empty next removes everything",
			existing:    []string{"Work", "Meeting"},
			next:        nil,
			wantAdded:   nil,
			wantRemoved: []string{"Work", "Meeting"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed := DiffCategories(tt.existing, tt.next)
			if !reflect.DeepEqual(added, tt.wantAdded) {
				t.Errorf("added = %v, want %v", added, tt.wantAdded)
			}
			if !reflect.DeepEqual(removed, tt.wantRemoved) {
				t.Errorf("removed = %v, want %v", removed, tt.wantRemoved)
			}
		})
	}
}

func TestCategoryMarkers(t *testing.T) {
	if !IsProjectName("[PROJECT] Apollo") {
		t.Error("prefixed project name should be recognised")
	}
	if !IsActivityName("[ACTIVITY] Weekly sync") {
		t.Error("prefixed activity name should be recognised")
	}
	if IsProjectName("Apollo [PROJECT]") || IsActivityName("Apollo") {
		t.Error("marker must lead the name to count")
	}
}
