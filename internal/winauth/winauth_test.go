// File: internal/winauth/winauth_test.go
package winauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFocusTargetMatches(t *testing.T) {
	win := WindowInfo{
		Handle:  1,
		Title:   "Project - Dev Studio 2024",
		Class:   "HwndWrapper[Studio.exe;;abc]",
		Process: "Studio.exe",
	}

	tests := []struct {
		name   string
		target FocusTarget
		want   bool
	}{
		{"title substring", FocusTarget{TitleContains: "dev studio"}, true},
		{"process substring", FocusTarget{ProcessName: "studio.exe"}, true},
		{"title mismatch", FocusTarget{TitleContains: "Notepad"}, false},
		{"class alone never suffices", FocusTarget{ClassContains: "HwndWrapper"}, false},
		{"class narrows a title match", FocusTarget{TitleContains: "Studio", ClassContains: "HwndWrapper"}, true},
		{"class mismatch vetoes a title match", FocusTarget{TitleContains: "Studio", ClassContains: "Chrome"}, false},
		{"empty target matches nothing", FocusTarget{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.Matches(win))
		})
	}
}

func TestFocusTargetEmpty(t *testing.T) {
	assert.True(t, FocusTarget{}.Empty())
	assert.True(t, FocusTarget{ClassContains: "x"}.Empty(), "class alone cannot identify a target")
	assert.False(t, FocusTarget{TitleContains: "x"}.Empty())
	assert.False(t, FocusTarget{ProcessName: "x"}.Empty())
}

func TestRectDimensions(t *testing.T) {
	r := Rect{Left: 10, Top: 20, Right: 110, Bottom: 70}
	assert.Equal(t, 100, r.Width())
	assert.Equal(t, 50, r.Height())

	inverted := Rect{Left: 10, Right: 0, Top: 10, Bottom: 0}
	assert.Equal(t, 0, inverted.Width(), "degenerate rectangles clamp to zero")
	assert.Equal(t, 0, inverted.Height())
}
