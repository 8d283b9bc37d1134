package corpus

import (
	"fmt"
	"net/http"
	"slices"

	"auroraqa/internal/domain"
)

type pageAction int

const (
	actionFetch pageAction = iota // request the page at offset
	actionRetry                   // request the same page again after a backoff
	actionDone                    // accumulated holds the result
	actionFail                    // err holds the reason
)

// pageState is the pagination progress. It is only changed by advance.
type pageState struct {
	offset      int
	accumulated []domain.Message
	retriesLeft int
	maxRetries  int
	total       int // -1 while unknown
	err         error
}

// pageOutcome is what one page request produced.
type pageOutcome struct {
	status int
	items  []domain.Message
	total  int // -1 when the response carried no total
	err    error
}

func newPageState(maxRetries int) pageState {
	return pageState{retriesLeft: maxRetries, maxRetries: maxRetries, total: -1}
}

// attempt is the 1-based retry number of the page being fetched.
func (s pageState) attempt() int { return s.maxRetries - s.retriesLeft }

// advance is the pagination transition function.
func advance(s pageState, o pageOutcome, pageSize int) (pageState, pageAction) {
	switch {
	case o.err != nil || o.status >= http.StatusInternalServerError:
		if s.retriesLeft > 0 {
			s.retriesLeft--
			return s, actionRetry
		}
		if len(s.accumulated) > 0 {
			return s, actionDone
		}
		if o.err != nil {
			s.err = fmt.Errorf("page at offset %d: %w", s.offset, o.err)
		} else {
			s.err = fmt.Errorf("page at offset %d: HTTP %d", s.offset, o.status)
		}
		return s, actionFail

	case isDenied(o.status):
		if len(s.accumulated) > 0 {
			return s, actionDone
		}
		s.err = fmt.Errorf("HTTP %d: %w", o.status, domain.ErrAccessDenied)
		return s, actionFail

	case o.status != http.StatusOK:
		if len(s.accumulated) > 0 {
			return s, actionDone
		}
		s.err = fmt.Errorf("unexpected HTTP %d", o.status)
		return s, actionFail
	}

	s.retriesLeft = s.maxRetries
	if o.total >= 0 {
		s.total = o.total
	}
	if len(o.items) == 0 {
		return s, actionDone
	}

	s.accumulated = slices.Concat(s.accumulated, o.items)
	if len(o.items) < pageSize {
		return s, actionDone
	}

	s.offset += pageSize
	if s.total >= 0 && (len(s.accumulated) >= s.total || s.offset > s.total) {
		return s, actionDone
	}
	return s, actionFetch
}

func isDenied(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}
