package feedspec

// Response is the per-user result container for batch operations.
// It preserves the input order of user IDs and holds, for each user,
// either a success value or a captured error. Failures never abort
// sibling users.
type Response struct {
	order   []string
	entries map[string]responseEntry
}

type responseEntry struct {
	value interface{}
	err   error
}

func newResponse(userIDs []string) *Response {
	order := make([]string, len(userIDs))
	copy(order, userIDs)
	return &Response{
		order:   order,
		entries: make(map[string]responseEntry, len(userIDs)),
	}
}

func (r *Response) set(userID string, value interface{}) {
	r.entries[userID] = responseEntry{value: value}
}

func (r *Response) fail(userID string, err error) {
	r.entries[userID] = responseEntry{err: err}
}

// Len returns the number of users in the response.
func (r *Response) Len() int {
	return len(r.order)
}

// Keys returns the user IDs in original input order.
func (r *Response) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Get returns the success value for a user, or the captured error.
// This is the single-user unwrap: exactly one of the returns is set.
func (r *Response) Get(userID string) (interface{}, error) {
	entry, ok := r.entries[userID]
	if !ok {
		return nil, newError(ErrNotFound, "response", userID, "no entry for user")
	}
	if entry.err != nil {
		return nil, entry.err
	}
	return entry.value, nil
}

// Value returns the success value for a user, or nil if the entry is
// missing or carries an error.
func (r *Response) Value(userID string) interface{} {
	entry := r.entries[userID]
	if entry.err != nil {
		return nil
	}
	return entry.value
}

// Err returns the captured error for a user, or nil on success.
func (r *Response) Err(userID string) error {
	return r.entries[userID].err
}

// HasErrors reports whether any user entry carries an error.
func (r *Response) HasErrors() bool {
	for _, entry := range r.entries {
		if entry.err != nil {
			return true
		}
	}
	return false
}

// Each calls fn for every user in input order with the entry's value
// and error.
func (r *Response) Each(fn func(userID string, value interface{}, err error)) {
	for _, userID := range r.order {
		entry := r.entries[userID]
		fn(userID, entry.value, entry.err)
	}
}

// Equal reports structural equality: same users in the same order with
// equal values and matching error messages.
func (r *Response) Equal(other *Response) bool {
	if other == nil || len(r.order) != len(other.order) {
		return false
	}
	for i, userID := range r.order {
		if other.order[i] != userID {
			return false
		}
		a, b := r.entries[userID], other.entries[userID]
		if (a.err == nil) != (b.err == nil) {
			return false
		}
		if a.err != nil {
			if a.err.Error() != b.err.Error() {
				return false
			}
			continue
		}
		if !valueEqual(a.value, b.value) {
			return false
		}
	}
	return true
}

func valueEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case []Event:
		bv, ok := b.([]Event)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case PageResult:
		bv, ok := b.(PageResult)
		if !ok || av.Total != bv.Total {
			return false
		}
		return valueEqual(av.Events, bv.Events)
	default:
		return a == b
	}
}

// Bool unwraps a boolean result (Store, Delete, Wipe).
func (r *Response) Bool(userID string) (bool, error) {
	value, err := r.Get(userID)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, newError(ErrProvider, "response", userID, "expected bool result, got %T", value)
	}
	return b, nil
}

// Int unwraps an integer result (DeleteIf, TotalCount, UnreadCount).
func (r *Response) Int(userID string) (int, error) {
	value, err := r.Get(userID)
	if err != nil {
		return 0, err
	}
	n, ok := value.(int)
	if !ok {
		return 0, newError(ErrProvider, "response", userID, "expected int result, got %T", value)
	}
	return n, nil
}

// Float unwraps a timestamp result (LastRead, ResetLastRead).
func (r *Response) Float(userID string) (float64, error) {
	value, err := r.Get(userID)
	if err != nil {
		return 0, err
	}
	f, ok := value.(float64)
	if !ok {
		return 0, newError(ErrProvider, "response", userID, "expected float result, got %T", value)
	}
	return f, nil
}

// Events unwraps a Fetch result.
func (r *Response) Events(userID string) ([]Event, error) {
	value, err := r.Get(userID)
	if err != nil {
		return nil, err
	}
	events, ok := value.([]Event)
	if !ok {
		return nil, newError(ErrProvider, "response", userID, "expected event slice result, got %T", value)
	}
	return events, nil
}

// Page unwraps a Paginate result.
func (r *Response) Page(userID string) (PageResult, error) {
	value, err := r.Get(userID)
	if err != nil {
		return PageResult{}, err
	}
	page, ok := value.(PageResult)
	if !ok {
		return PageResult{}, newError(ErrProvider, "response", userID, "expected page result, got %T", value)
	}
	return page, nil
}
