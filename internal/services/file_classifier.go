package services

import (
	"fmt"
	"strings"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

// MonthDay is a calendar date without a year.
type MonthDay struct {
	Month int
	Day   int
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", md.Month, md.Day)
}

// nominal month lengths; February allows the 29th
var daysInMonth = [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func (md MonthDay) valid() bool {
	return md.Month >= 1 && md.Month <= 12 && md.Day >= 1 && md.Day <= daysInMonth[md.Month]
}

// Classification is the outcome of classifying one filename.
// Recognized is false for names without the file prefix; in that case both tags are Unknown.
type Classification struct {
	Recognized bool
	HasDate    bool
	Date       MonthDay
	Strategy   domain.Strategy
}

// DateTag renders the date as "MM-DD" or "Unknown".
func (c Classification) DateTag() string {
	if !c.HasDate {
		return domain.UnknownDate
	}
	return c.Date.String()
}

// FileClassifier derives date and strategy tags from tick file names of the form
// "<prefix>..._MM-DD-HH-MM...". Names containing the variant marker are Bull files.
type FileClassifier struct {
	prefix string
	marker string
}

func NewFileClassifier(prefix, marker string) *FileClassifier {
	return &FileClassifier{prefix: prefix, marker: marker}
}

// Matches reports whether name carries the tick file prefix.
func (fc *FileClassifier) Matches(name string) bool {
	return strings.HasPrefix(name, fc.prefix)
}

// Classify never fails; unrecognizable parts degrade to Unknown.
func (fc *FileClassifier) Classify(name string) Classification {
	if !fc.Matches(name) {
		return Classification{Strategy: domain.StrategyUnknown}
	}

	c := Classification{Recognized: true, Strategy: domain.StrategyBear}
	// the marker is matched anywhere in the name, date segment included
	if fc.marker != "" && strings.Contains(name, fc.marker) {
		c.Strategy = domain.StrategyBull
	}

	if md, ok := findDateSegment(name[fc.dateSearchStart():]); ok {
		c.Date = md
		c.HasDate = true
	}
	return c
}

// ClassifyRef attaches tags to a remote file reference.
func (fc *FileClassifier) ClassifyRef(ref domain.RemoteFileRef) domain.ClassifiedFile {
	c := fc.Classify(ref.Name)
	return domain.ClassifiedFile{
		RemoteFileRef: ref,
		DateTag:       c.DateTag(),
		StrategyTag:   c.Strategy,
	}
}

// dateSearchStart is where the date search begins. A prefix ending in "_"
// shares that underscore with a date segment directly after it.
func (fc *FileClassifier) dateSearchStart() int {
	if strings.HasSuffix(fc.prefix, "_") {
		return len(fc.prefix) - 1
	}
	return len(fc.prefix)
}

// dateSegmentLen is len("_MM-DD-HH-MM").
const dateSegmentLen = 12

// findDateSegment locates the first "_MM-DD-HH-MM" digit segment in s and
// returns its month-day. A first segment with an impossible date yields false.
func findDateSegment(s string) (MonthDay, bool) {
	for i := 0; i+dateSegmentLen <= len(s); i++ {
		if s[i] != '_' || !isDateSegment(s[i+1:i+dateSegmentLen]) {
			continue
		}
		seg := s[i+1:]
		md := MonthDay{
			Month: int(seg[0]-'0')*10 + int(seg[1]-'0'),
			Day:   int(seg[3]-'0')*10 + int(seg[4]-'0'),
		}
		return md, md.valid()
	}
	return MonthDay{}, false
}

// isDateSegment checks the "DD-DD-DD-DD" shape.
func isDateSegment(s string) bool {
	for i := 0; i < len(s); i++ {
		if i%3 == 2 {
			if s[i] != '-' {
				return false
			}
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
