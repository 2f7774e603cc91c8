package domain

import (
	"fmt"
	"strings"
	"time"
)

// Strategy is the data-source variant a file belongs to.
type Strategy string

const (
	StrategyBull    Strategy = "Bull"
	StrategyBear    Strategy = "Bear"
	StrategyUnknown Strategy = "Unknown"
)

// UnknownDate is the date tag of files without a recognizable date segment.
const UnknownDate = "Unknown"

// Letter returns the single-letter label used in listing output.
func (s Strategy) Letter() string {
	switch s {
	case StrategyBull:
		return "B"
	case StrategyBear:
		return "K"
	default:
		return "?"
	}
}

// ParseStrategy accepts "Bull"/"Bear" (any case) or the labels "B"/"K".
// An empty string yields StrategyUnknown and no error.
func ParseStrategy(s string) (Strategy, error) {
	switch {
	case s == "":
		return StrategyUnknown, nil
	case strings.EqualFold(s, string(StrategyBull)), strings.EqualFold(s, "B"):
		return StrategyBull, nil
	case strings.EqualFold(s, string(StrategyBear)), strings.EqualFold(s, "K"):
		return StrategyBear, nil
	}
	return StrategyUnknown, fmt.Errorf("unknown strategy %q", s)
}

// RemoteFileRef is a file entry as returned by the remote store
type RemoteFileRef struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	CreatedTime *time.Time `json:"created_time,omitempty"`
}

// ClassifiedFile is a RemoteFileRef with tags derived from its name
type ClassifiedFile struct {
	RemoteFileRef
	DateTag     string   `json:"date_tag"`     // "MM-DD" or "Unknown"
	StrategyTag Strategy `json:"strategy_tag"` // "Bull" | "Bear" | "Unknown"
}

// Label renders the "<TagLetter> MM-DD" display string.
func (f ClassifiedFile) Label() string {
	return f.StrategyTag.Letter() + " " + f.DateTag
}

// FileListing is one entry of the listing query surface.
type FileListing struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

// ListingOf projects classified files onto the listing query surface.
func ListingOf(files []ClassifiedFile) []FileListing {
	out := make([]FileListing, 0, len(files))
	for _, f := range files {
		out = append(out, FileListing{ID: f.ID, Name: f.Name, Date: f.Label()})
	}
	return out
}
