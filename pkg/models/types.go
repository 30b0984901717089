package models

import (
	"sort"
	"strings"
	"time"
)

/*
LOAD → raw rows as read from the input file, before any validation.
*/

// RawRow is one input line keyed by column name. Values are kept as text;
// a missing value is the empty string or one of the NA tokens.
type RawRow struct {
	Line       int               // 1-based line number in the source file (header = 1).
	CustomerID string            // value of the index column
	Fields     map[string]string // required column → raw value
}

// TransactionRecord is a validated order line.
type TransactionRecord struct {
	CustomerID string
	OrderID    string
	OrderDate  time.Time
	Amount     float64
}

// CleanStats counts what the cleaner dropped and why.
type CleanStats struct {
	Total       int // rows received
	Missing     int // rows with at least one missing required field
	BelowAmount int // rows whose amount is <= the minimum amount
	Kept        int
}

// Excluded returns the number of dropped rows.
func (s CleanStats) Excluded() int {
	return s.Missing + s.BelowAmount
}

/*
COMPUTE → per-customer metrics and scores
*/

// CustomerMetrics holds the raw RFM values of one customer.
type CustomerMetrics struct {
	CustomerID  string
	LastOrder   time.Time
	RecencyDays int     // days between reference date and LastOrder
	Frequency   int     // number of orders
	Monetary    float64 // sum of amounts
}

// CustomerScore holds the 1..5 ordinal scores and the weighted composite.
type CustomerScore struct {
	CustomerID    string
	RScore        int
	FScore        int
	MScore        int
	WeightedScore float64
}

// SortedScores returns the scores ordered by customer id.
func SortedScores(scores map[string]CustomerScore) []CustomerScore {
	out := make([]CustomerScore, 0, len(scores))
	for _, s := range scores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

/*
EXPORT → per-destination outcome
*/

// ExportResult reports what one destination wrote.
type ExportResult struct {
	Destination string
	Rows        int // rows offered to the destination
	Written     int // rows durably written (committed)
	Failed      int // rows whose write failed or was rolled back
	Skipped     int // rows not attempted after a failure
}

// RunReport summarizes a full pipeline run.
type RunReport struct {
	RunID     string
	RawRows   int
	Clean     CleanStats
	Customers int
	Scores    []CustomerScore // sorted by customer id
	Exports   []ExportResult
	Duration  time.Duration
}

/*
COLUMNS → input file contract
*/

const (
	ColOrderID    = "ORDERID"
	ColOrderDate  = "ORDERDATE"
	ColAmountInfo = "AMOUNTINFO"
)

// RequiredColumns are the columns every input file must carry besides the index column.
var RequiredColumns = []string{ColOrderDate, ColOrderID, ColAmountInfo}

// naTokens are the spellings treated as a missing value.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {}, "None": {}, "#N/A": {},
}

// IsMissing reports whether a raw cell counts as missing.
func IsMissing(v string) bool {
	_, ok := naTokens[strings.TrimSpace(v)]
	return ok
}
