package testsupport

import (
	"testing"

	"conftalks/internal/talk"
)

// SampleRecord returns a fully populated record for the April 2020 session.
// Callers override fields as needed.
func SampleRecord() talk.Record {
	return talk.Record{
		Calling: "Of the Quorum of the Twelve Apostles",
		Season:  talk.SeasonApril,
		Session: "Saturday Morning Session",
		Speaker: "By Elder Dieter F. Uchtdorf",
		Talk:    "Faith is a principle of action and power.",
		Title:   "Faith in Every Footstep",
		URL:     "https://www.churchofjesuschrist.org/study/general-conference/2020/04/13uchtdorf?lang=eng",
		Year:    2020,
	}
}

// WriteArchive writes records to path as a JSON archive.
func WriteArchive(t testing.TB, path string, records []talk.Record) {
	t.Helper()

	if err := talk.WriteJSON(path, records); err != nil {
		t.Fatalf("write archive %s: %v", path, err)
	}
}
