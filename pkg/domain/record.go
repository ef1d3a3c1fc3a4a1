package domain

import (
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxCommandLength is the longest accepted chat command, in characters.
const MaxCommandLength = 100

// Record describes the media bound to one chat command. LocalPath and
// SizeBytes are only set once the acquisition pipeline has finished.
type Record struct {
	Command     string    `json:"command"`
	SourceURL   string    `json:"sourceUrl"`
	LocalPath   string    `json:"localPath,omitempty"`
	Extension   string    `json:"extension"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
	SizeBytes   *int64    `json:"sizeBytes,omitempty"`
	Name        string    `json:"name,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
}

// NewRecord starts a record for a pending acquisition.
func NewRecord(command, sourceURL, author, name string, createdAt time.Time) *Record {
	return &Record{
		Command:   command,
		SourceURL: sourceURL,
		Extension: ExtensionFromURL(sourceURL),
		Author:    author,
		CreatedAt: createdAt,
		Name:      name,
	}
}

// SetSize stores the measured size of the final artifact.
func (r *Record) SetSize(n int64) {
	r.SizeBytes = &n
}

// Size returns the measured size and whether it has been recorded.
func (r *Record) Size() (int64, bool) {
	if r.SizeBytes == nil {
		return 0, false
	}
	return *r.SizeBytes, true
}

// Clone returns a deep copy so callers can't mutate registry state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.SizeBytes != nil {
		n := *r.SizeBytes
		c.SizeBytes = &n
	}
	return &c
}

// CommandLength counts characters, not bytes.
func CommandLength(command string) int {
	return utf8.RuneCountInString(command)
}

// NormalizeCommand returns the canonical, lower-cased form of a command, so
// "!Cat" and "!cat" name the same entry. A Caser is stateful, so each call
// gets its own.
func NormalizeCommand(command string) string {
	return cases.Lower(language.Und).String(command)
}
