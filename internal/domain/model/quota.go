package model

import "time"

// QuotaRecord tracks one owner's monthly budget of search calls.
type QuotaRecord struct {
	OwnerID     string
	PeriodStart time.Time // first day of the current monthly window
	Used        int
	Limit       int
}

func NewQuotaRecord(ownerID string, limit int, now time.Time) *QuotaRecord {
	return &QuotaRecord{
		OwnerID:     ownerID,
		PeriodStart: MonthStart(now),
		Used:        0,
		Limit:       limit,
	}
}

// RollIfStale lazily resets the record when the wall-clock month has
// advanced past PeriodStart. Returns true when a reset happened.
func (q *QuotaRecord) RollIfStale(now time.Time) bool {
	if !MonthStart(now).After(q.PeriodStart) {
		return false
	}
	q.PeriodStart = MonthStart(now)
	q.Used = 0
	return true
}

func (q *QuotaRecord) Remaining() int {
	if q.Used >= q.Limit {
		return 0
	}
	return q.Limit - q.Used
}

func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
