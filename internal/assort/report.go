package assort

import "time"

// BucketReport summarizes what one bucket produced.
type BucketReport struct {
	Date  time.Time
	Files int
	Bytes int64
	// Linked, Existing and Failed are only set for link targets.
	Linked   int
	Existing int
	Failed   int
}

// Report summarizes one Assort call.
type Report struct {
	Source string
	Target string
	Kind   Kind
	// Unavailable is set when the source directory could not be used and was
	// left out of the run.
	Unavailable bool
	Enumerated  int
	Skipped     []string
	Buckets     []BucketReport
}

// Matched is the number of files assigned to any bucket.
func (r Report) Matched() int {
	n := 0
	for _, b := range r.Buckets {
		n += b.Files
	}
	return n
}

// Bytes is the total size of all matched files.
func (r Report) Bytes() int64 {
	var n int64
	for _, b := range r.Buckets {
		n += b.Bytes
	}
	return n
}

// LinkFailures is the number of files a link target could not link.
func (r Report) LinkFailures() int {
	n := 0
	for _, b := range r.Buckets {
		n += b.Failed
	}
	return n
}
