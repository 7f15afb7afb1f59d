package activity_test

import (
	"reflect"
	"testing"

	"github.com/edgard/guildwatch/internal/activity"
	"github.com/edgard/guildwatch/internal/database"
)

func TestSummarizeAttachments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []activity.Attachment
		want  string
	}{
		{name: "empty", input: nil, want: ""},
		{
			name:  "single",
			input: []activity.Attachment{{Filename: "cat.png", URL: "https://cdn/cat.png"}},
			want:  "cat.png (https://cdn/cat.png)",
		},
		{
			name: "ordered lines",
			input: []activity.Attachment{
				{Filename: "a.txt", URL: "https://cdn/a.txt"},
				{Filename: "b (1).mp4", URL: "https://cdn/b.mp4"},
			},
			want: "a.txt (https://cdn/a.txt)\nb (1).mp4 (https://cdn/b.mp4)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := activity.SummarizeAttachments(tt.input); got != tt.want {
				t.Errorf("SummarizeAttachments() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAttachmentSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []activity.Attachment
	}{
		{name: "empty", raw: "", want: nil},
		{
			name: "media detection",
			raw:  "photo.JPG (https://cdn/photo.JPG)\nnotes.pdf (https://cdn/notes.pdf)",
			want: []activity.Attachment{
				{Filename: "photo.JPG", URL: "https://cdn/photo.JPG", IsMedia: true},
				{Filename: "notes.pdf", URL: "https://cdn/notes.pdf", IsMedia: false},
			},
		},
		{
			name: "filename with parentheses",
			raw:  "clip (final).mov (https://cdn/clip.mov)",
			want: []activity.Attachment{
				{Filename: "clip (final).mov", URL: "https://cdn/clip.mov", IsMedia: true},
			},
		},
		{
			name: "malformed lines skipped",
			raw:  "no url here\n\n  ok.gif (https://cdn/ok.gif)  \nbroken (https://cdn/x",
			want: []activity.Attachment{
				{Filename: "ok.gif", URL: "https://cdn/ok.gif", IsMedia: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := activity.ParseAttachmentSummary(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAttachmentSummary() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	snap := func(content, summary string) *database.MessageSnapshot {
		return &database.MessageSnapshot{Content: content, AttachmentSummary: summary}
	}

	tests := []struct {
		name        string
		prev        *database.MessageSnapshot
		content     string
		summary     string
		wantKind    database.EventKind
		wantChanged bool
	}{
		{name: "no snapshot", prev: nil, content: "a"},
		{name: "identical", prev: snap("a", "x (u)"), content: "a", summary: "x (u)"},
		{name: "content edited", prev: snap("a", ""), content: "b", wantKind: database.EventEdited, wantChanged: true},
		{name: "attachment removed", prev: snap("a", "x (u)"), content: "a", summary: "", wantKind: database.EventAttachmentRemoved, wantChanged: true},
		{name: "both changed", prev: snap("a", "x (u)"), content: "b", summary: "", wantKind: database.EventEdited, wantChanged: true},
		{name: "whitespace is a change", prev: snap("a", ""), content: "a ", wantKind: database.EventEdited, wantChanged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, changed := activity.Classify(tt.prev, tt.content, tt.summary)
			if kind != tt.wantKind || changed != tt.wantChanged {
				t.Errorf("Classify() = %q, %v; want %q, %v", kind, changed, tt.wantKind, tt.wantChanged)
			}
		})
	}
}
