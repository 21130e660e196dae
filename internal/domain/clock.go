package domain

import "time"

// Clock abstracts time retrieval so table operations are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the current UTC time at full precision. Spreadsheet cells
// drop the sub-second part when a table is encoded.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
