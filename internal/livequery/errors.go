package livequery

import "errors"

// ErrQueryClosed is returned by Refetch on a query that has been closed.
var ErrQueryClosed = errors.New("livequery: query is closed")

// DataServiceError reports a failed round trip to the election data service.
// It is surfaced verbatim on the query so callers can show a retry
// affordance; it is never swallowed, since hiding a failed refresh would
// present stale vote counts as current.
type DataServiceError struct {
	Key string
	Err error
}

func (e *DataServiceError) Error() string {
	return "data service fetch failed for " + e.Key + ": " + e.Err.Error()
}

func (e *DataServiceError) Unwrap() error { return e.Err }

// SubscriptionError reports a dropped change-notification channel. It is
// recovered locally (the listener resubscribes on the next consumer-driven
// request) and never reaches a query's error field.
type SubscriptionError struct {
	Topic string
}

func (e *SubscriptionError) Error() string {
	return "change subscription dropped for topic " + e.Topic
}
