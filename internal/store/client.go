package store

import (
	"context"
	"time"

	"vitalsched/internal/schedule"
	logx "vitalsched/pkg/logx"
)

// DefaultWaitCeiling bounds one request/response round-trip with the store
// worker. Two minutes is generous for a local database; hitting it means
// something is wrong, and the caller's pass should fail rather than hang.
const DefaultWaitCeiling = 2 * time.Minute

// Client is the bounded request/response facade over the store worker.
// Every call sends one message and waits for its reply up to the ceiling
// (or the caller's context, whichever ends first); an expired wait is
// reported as ErrRetrievalTimeout.
type Client struct {
	req     chan<- Request
	ceiling time.Duration
	log     logx.Logger
}

func NewClient(svc *Service, ceiling time.Duration, log logx.Logger) *Client {
	if ceiling <= 0 {
		ceiling = DefaultWaitCeiling
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{req: svc.Requests(), ceiling: ceiling, log: log}
}

func (c *Client) Subjects(ctx context.Context) ([]Subject, error) {
	reply := make(chan SubjectsResponse, 1)
	resp, err := roundTrip(ctx, c, SubjectsRequest{Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return resp.Subjects, resp.Err
}

func (c *Client) PutSubject(ctx context.Context, s Subject) error {
	reply := make(chan PutSubjectResponse, 1)
	resp, err := roundTrip(ctx, c, PutSubjectRequest{Subject: s, Reply: reply}, reply)
	if err != nil {
		return err
	}
	return resp.Err
}

func (c *Client) Entries(ctx context.Context, subjectID string) ([]schedule.Entry, error) {
	reply := make(chan EntriesResponse, 1)
	resp, err := roundTrip(ctx, c, EntriesRequest{SubjectID: subjectID, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return resp.Entries, resp.Err
}

func (c *Client) PutEntry(ctx context.Context, e schedule.Entry) (schedule.Entry, error) {
	reply := make(chan PutEntryResponse, 1)
	resp, err := roundTrip(ctx, c, PutEntryRequest{Entry: e, Reply: reply}, reply)
	if err != nil {
		return schedule.Entry{}, err
	}
	return resp.Entry, resp.Err
}

// UpdateLastTriggered is fire-and-forget: no reply is awaited. A full queue
// drops the update with a warning; the next pass will simply re-evaluate.
func (c *Client) UpdateLastTriggered(key schedule.Key, at time.Time) {
	select {
	case c.req <- UpdateLastTriggeredRequest{Key: key, At: at}:
	default:
		c.log.Warn("store queue full, last-triggered update dropped",
			logx.String("key", key.String()))
	}
}

func (c *Client) DeleteEntry(ctx context.Context, subjectID string, seqNbr int) ([]schedule.Entry, error) {
	return c.deleteEntries(ctx, subjectID, seqNbr)
}

func (c *Client) DeleteAllEntries(ctx context.Context, subjectID string) ([]schedule.Entry, error) {
	return c.deleteEntries(ctx, subjectID, AllEntries)
}

func (c *Client) deleteEntries(ctx context.Context, subjectID string, seqNbr int) ([]schedule.Entry, error) {
	reply := make(chan EntriesResponse, 1)
	resp, err := roundTrip(ctx, c,
		DeleteEntriesRequest{SubjectID: subjectID, SeqNbr: seqNbr, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return resp.Entries, resp.Err
}

func roundTrip[T any](ctx context.Context, c *Client, req Request, reply <-chan T) (T, error) {
	var zero T
	timer := time.NewTimer(c.ceiling)
	defer timer.Stop()

	select {
	case c.req <- req:
	case <-timer.C:
		return zero, ErrRetrievalTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case resp := <-reply:
		return resp, nil
	case <-timer.C:
		return zero, ErrRetrievalTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
