package activity

import (
	"fmt"
	"strings"
)

// Attachment is one file attached to a message.
type Attachment struct {
	Filename string
	URL      string
	IsMedia  bool
}

var mediaExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".mp4", ".webm", ".mov"}

// IsMediaFilename reports whether name has an image or video extension.
func IsMediaFilename(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// SummarizeAttachments serializes attachments as "filename (url)" lines.
// An empty list yields "".
func SummarizeAttachments(attachments []Attachment) string {
	if len(attachments) == 0 {
		return ""
	}
	lines := make([]string, len(attachments))
	for i, a := range attachments {
		lines[i] = fmt.Sprintf("%s (%s)", a.Filename, a.URL)
	}
	return strings.Join(lines, "\n")
}

// ParseAttachmentSummary is the inverse of SummarizeAttachments. Lines that
// do not end in "(url)" are skipped.
func ParseAttachmentSummary(raw string) []Attachment {
	var out []Attachment
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasSuffix(line, ")") {
			continue
		}
		start := strings.LastIndex(line, " (")
		if start < 0 {
			continue
		}
		filename := line[:start]
		out = append(out, Attachment{
			Filename: filename,
			URL:      line[start+2 : len(line)-1],
			IsMedia:  IsMediaFilename(filename),
		})
	}
	return out
}
