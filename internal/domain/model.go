package domain

import "time"

// Model is a named note schema. KeyFields lists the data fields that decide
// whether two notes describe the same fact.
type Model struct {
	ID        int64
	Name      string
	KeyFields []string
	CSS       string
	JS        string
	Templates []Template
}

// Template renders cards for one model.
type Template struct {
	ID      int64
	ModelID int64
	Name    string
	Front   string
	Back    string
}

// Produces reports whether the template renders anything for data beyond
// what it renders with no data at all.
func (t Template) Produces(data Fields) bool {
	return Render(t.Front, nil) != Render(t.Front, data)
}

// Note is a fact record, the source of one card per producing template.
type Note struct {
	ID         int64
	GUID       string
	ModelID    int64
	Data       Fields
	Constraint string
	Tags       []string
	Created    time.Time
	Modified   time.Time
}

// Deck groups cards. Names nest with "::".
type Deck struct {
	ID   int64
	Name string
}

// Tag labels notes.
type Tag struct {
	ID   int64
	Name string
}

// Settings is the process-wide singleton row.
type Settings struct {
	Intervals []time.Duration
	Version   string
}
