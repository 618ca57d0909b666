package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// CardInfo holds the review counters of a card.
type CardInfo struct {
	Lapse      int `json:"lapse"`
	Streak     int `json:"streak"`
	TotalRight int `json:"total_right"`
	TotalWrong int `json:"total_wrong"`
	// Buried is set while the next review was chosen by hand rather than
	// from the interval table.
	Buried bool `json:"buried,omitempty"`
}

// CardSnapshot is the persisted schedule state of a card, kept as the
// single-step undo point.
type CardSnapshot struct {
	SRSLevel   *int       `json:"srs_level"`
	NextReview *time.Time `json:"next_review"`
	LastReview *time.Time `json:"last_review"`
	Info       CardInfo   `json:"info"`
	// Captured is when the snapshot was taken as a backup.
	Captured time.Time `json:"captured,omitzero"`
}

// Card is one reviewable instance of a note rendered by a template.
type Card struct {
	ID         int64
	TemplateID int64
	NoteID     int64
	Front      string
	SRSLevel   *int
	NextReview *time.Time
	LastReview *time.Time
	Info       CardInfo
	Backup     *CardSnapshot

	// Loaded alongside the card for rendering.
	Template Template
	Data     Fields
	Decks    []string
}

// Status names the schedule state of a card.
type Status string

const (
	StatusNew       Status = "new"
	StatusScheduled Status = "scheduled"
	StatusGraduated Status = "graduated"
	StatusBuried    Status = "buried"
)

func (c *Card) Status() Status {
	switch {
	case c.SRSLevel == nil && c.NextReview == nil:
		return StatusNew
	case c.NextReview == nil:
		return StatusGraduated
	case c.SRSLevel == nil || c.Info.Buried:
		return StatusBuried
	default:
		return StatusScheduled
	}
}

// Snapshot copies the schedule state of the card.
func (c *Card) Snapshot() CardSnapshot {
	return CardSnapshot{
		SRSLevel:   cloneInt(c.SRSLevel),
		NextReview: cloneTime(c.NextReview),
		LastReview: cloneTime(c.LastReview),
		Info:       c.Info,
	}
}

// Restore overwrites the schedule state of the card with s.
func (c *Card) Restore(s CardSnapshot) {
	c.SRSLevel = cloneInt(s.SRSLevel)
	c.NextReview = cloneTime(s.NextReview)
	c.LastReview = cloneTime(s.LastReview)
	c.Info = s.Info
}

// RenderFront renders the front of the card from its template and note data.
func (c *Card) RenderFront() string {
	return Render(c.Template.Front, c.Data)
}

// Back renders the back of the card. Without a back pattern the note data is
// shown as indented JSON.
func (c *Card) Back() string {
	if c.Template.Back != "" {
		return Render(c.Template.Back, c.Data)
	}
	raw, err := c.Data.MarshalJSON()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return ""
	}
	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
