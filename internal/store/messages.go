package store

import (
	"time"

	"vitalsched/internal/schedule"
)

// Request is one message to the store worker. Fire-and-forget requests carry
// no reply channel; everything else replies exactly once on its Reply
// channel, which the sender must buffer (capacity 1) so a caller that gave
// up waiting never blocks the worker.
type Request interface{ isRequest() }

// SubjectsRequest asks for every known subject.
type SubjectsRequest struct {
	Reply chan SubjectsResponse
}

type SubjectsResponse struct {
	Subjects []Subject
	Err      error
}

// PutSubjectRequest creates or updates a subject.
type PutSubjectRequest struct {
	Subject Subject
	Reply   chan PutSubjectResponse
}

type PutSubjectResponse struct {
	Err error
}

// EntriesRequest asks for all schedule entries of one subject, ordered by
// sequence number.
type EntriesRequest struct {
	SubjectID string
	Reply     chan EntriesResponse
}

type EntriesResponse struct {
	SubjectID string
	Entries   []schedule.Entry
	Err       error
}

// PutEntryRequest creates or updates a schedule entry. A zero SeqNbr means
// create: the store assigns the subject's next sequence number and the
// response carries the entry with it filled in.
type PutEntryRequest struct {
	Entry schedule.Entry
	Reply chan PutEntryResponse
}

type PutEntryResponse struct {
	Entry schedule.Entry
	Err   error
}

// UpdateLastTriggeredRequest records when an entry last fired.
// Fire-and-forget: no reply, failures are logged by the worker.
type UpdateLastTriggeredRequest struct {
	Key schedule.Key
	At  time.Time
}

// AllEntries as the SeqNbr of a DeleteEntriesRequest selects every entry of
// the subject.
const AllEntries = 0

// DeleteEntriesRequest removes one entry, or all of a subject's entries when
// SeqNbr is AllEntries. The response lists the entries that remain, so a
// caller can refresh its view without a second round-trip.
type DeleteEntriesRequest struct {
	SubjectID string
	SeqNbr    int
	Reply     chan EntriesResponse
}

func (SubjectsRequest) isRequest()            {}
func (PutSubjectRequest) isRequest()          {}
func (EntriesRequest) isRequest()             {}
func (PutEntryRequest) isRequest()            {}
func (UpdateLastTriggeredRequest) isRequest() {}
func (DeleteEntriesRequest) isRequest()       {}
