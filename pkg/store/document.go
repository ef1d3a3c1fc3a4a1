package store

import (
	"fmt"
	"sort"

	"github.com/kdeps/mediacmd/pkg/domain"
)

// Document is the on-disk shape of the registry.
type Document struct {
	Images   map[string]*domain.Record `json:"images"`
	Commands []string                  `json:"commands"`
}

// NewDocument returns an empty document that serializes as
// {"images":{},"commands":[]}.
func NewDocument() *Document {
	return &Document{
		Images:   make(map[string]*domain.Record),
		Commands: []string{},
	}
}

// Repair makes Commands and Images agree: duplicate or dangling commands are
// dropped and records missing from Commands are appended in creation order.
// It returns a description of every fix applied.
func (d *Document) Repair() []string {
	var fixes []string
	if d.Images == nil {
		d.Images = make(map[string]*domain.Record)
	}
	if d.Commands == nil {
		d.Commands = []string{}
	}

	seen := make(map[string]bool, len(d.Commands))
	commands := make([]string, 0, len(d.Commands))
	for _, c := range d.Commands {
		switch {
		case seen[c]:
			fixes = append(fixes, fmt.Sprintf("duplicate command %q dropped", c))
		case d.Images[c] == nil:
			fixes = append(fixes, fmt.Sprintf("command %q has no record", c))
		default:
			seen[c] = true
			commands = append(commands, c)
		}
	}

	var orphans []string
	for c, r := range d.Images {
		if r == nil {
			delete(d.Images, c)
			continue
		}
		if !seen[c] {
			orphans = append(orphans, c)
		}
	}
	sort.Slice(orphans, func(i, j int) bool {
		a, b := d.Images[orphans[i]], d.Images[orphans[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return orphans[i] < orphans[j]
	})
	for _, c := range orphans {
		fixes = append(fixes, fmt.Sprintf("record %q was not listed", c))
		commands = append(commands, c)
	}

	for c, r := range d.Images {
		if r.Command != c {
			fixes = append(fixes, fmt.Sprintf("record %q carried command %q", c, r.Command))
			r.Command = c
		}
	}

	d.Commands = commands
	return fixes
}
