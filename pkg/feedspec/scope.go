package feedspec

import (
	"context"
)

// Scope carries an activity together with a named-data bundle through a
// user-supplied callback. It replaces implicit-receiver block DSLs with
// an explicit value: operations on the scope delegate to the activity,
// and bindings are plain lookups.
type Scope struct {
	activity *Activity
	bindings map[string]interface{}
}

// NewScope creates a scope over an activity with an optional bindings map.
func NewScope(activity *Activity, bindings map[string]interface{}) *Scope {
	if bindings == nil {
		bindings = make(map[string]interface{})
	}
	return &Scope{activity: activity, bindings: bindings}
}

// Activity returns the scoped activity.
func (s *Scope) Activity() *Activity {
	return s.activity
}

// Binding returns a named value from the scope's bundle.
func (s *Scope) Binding(name string) (interface{}, bool) {
	value, ok := s.bindings[name]
	return value, ok
}

// Store delegates to the scoped activity.
func (s *Scope) Store(ctx context.Context, event Event) (*Response, error) {
	return s.activity.Store(ctx, event)
}

// Delete delegates to the scoped activity.
func (s *Scope) Delete(ctx context.Context, event Event) (*Response, error) {
	return s.activity.Delete(ctx, event)
}

// Paginate delegates to the scoped activity.
func (s *Scope) Paginate(ctx context.Context, page Page) (*Response, error) {
	return s.activity.Paginate(ctx, page)
}

// Fetch delegates to the scoped activity.
func (s *Scope) Fetch(ctx context.Context) (*Response, error) {
	return s.activity.Fetch(ctx)
}

// UnreadCount delegates to the scoped activity.
func (s *Scope) UnreadCount(ctx context.Context) (*Response, error) {
	return s.activity.UnreadCount(ctx)
}

// WithScope runs block with a scope binding the feed's activity for
// userIDs and the given bundle.
func (f *Feed) WithScope(userIDs []string, bindings map[string]interface{}, block func(*Scope) error) error {
	return block(NewScope(f.Activity(userIDs...), bindings))
}
