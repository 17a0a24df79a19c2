package feedspec

import (
	"context"
)

// Activity binds a feed to a list of users and routes every operation
// to the feed's provider. It is stateless between calls: it never
// caches feed state, only the (feed, user IDs) reference.
type Activity struct {
	feed    *Feed
	userIDs []string
}

// UserIDs returns the bound user list.
func (a *Activity) UserIDs() []string {
	ids := make([]string, len(a.userIDs))
	copy(ids, a.userIDs)
	return ids
}

// Feed returns the feed this activity is bound to.
func (a *Activity) Feed() *Feed {
	return a.feed
}

// Store inserts the event for every bound user.
func (a *Activity) Store(ctx context.Context, event Event) (*Response, error) {
	return a.feed.provider.Store(ctx, a.userIDs, event)
}

// Delete removes the event's value for every bound user.
func (a *Activity) Delete(ctx context.Context, event Event) (*Response, error) {
	return a.feed.provider.Delete(ctx, a.userIDs, event)
}

// DeleteIf removes every event the predicate selects.
func (a *Activity) DeleteIf(ctx context.Context, pred Predicate) (*Response, error) {
	return a.feed.provider.DeleteIf(ctx, a.userIDs, pred)
}

// Wipe drops all state for every bound user.
func (a *Activity) Wipe(ctx context.Context) (*Response, error) {
	return a.feed.provider.Wipe(ctx, a.userIDs)
}

// Paginate reads one page per user; a zero PerPage uses the feed's
// configured page size.
func (a *Activity) Paginate(ctx context.Context, page Page) (*Response, error) {
	if page.PerPage == 0 {
		page.PerPage = a.feed.cfg.PerPage
	}
	return a.feed.provider.Paginate(ctx, a.userIDs, page)
}

// Fetch reads every bound user's full feed.
func (a *Activity) Fetch(ctx context.Context) (*Response, error) {
	return a.feed.provider.Fetch(ctx, a.userIDs)
}

// ResetLastRead advances the watermark; at <= 0 means now.
func (a *Activity) ResetLastRead(ctx context.Context, at float64) (*Response, error) {
	return a.feed.provider.ResetLastRead(ctx, a.userIDs, at)
}

// TotalCount returns each user's event count.
func (a *Activity) TotalCount(ctx context.Context) (*Response, error) {
	return a.feed.provider.TotalCount(ctx, a.userIDs)
}

// UnreadCount returns each user's count of events past the watermark.
func (a *Activity) UnreadCount(ctx context.Context) (*Response, error) {
	return a.feed.provider.UnreadCount(ctx, a.userIDs)
}

// LastRead returns each user's watermark.
func (a *Activity) LastRead(ctx context.Context) (*Response, error) {
	return a.feed.provider.LastRead(ctx, a.userIDs)
}

// UserActivity is the single-user adapter over the batched Activity.
// Every operation dispatches a one-element list and unwraps the
// Response to that user's scalar, returning the captured error
// directly when the entry failed.
type UserActivity struct {
	inner  *Activity
	userID string
}

// UserID returns the bound user.
func (u *UserActivity) UserID() string {
	return u.userID
}

// Store inserts the event; false means the value already existed.
func (u *UserActivity) Store(ctx context.Context, event Event) (bool, error) {
	resp, err := u.inner.Store(ctx, event)
	if err != nil {
		return false, err
	}
	return resp.Bool(u.userID)
}

// Delete removes the event's value; false means it was absent.
func (u *UserActivity) Delete(ctx context.Context, event Event) (bool, error) {
	resp, err := u.inner.Delete(ctx, event)
	if err != nil {
		return false, err
	}
	return resp.Bool(u.userID)
}

// DeleteIf removes matching events and returns the removed count.
func (u *UserActivity) DeleteIf(ctx context.Context, pred Predicate) (int, error) {
	resp, err := u.inner.DeleteIf(ctx, pred)
	if err != nil {
		return 0, err
	}
	return resp.Int(u.userID)
}

// Wipe drops all state; false means none existed.
func (u *UserActivity) Wipe(ctx context.Context) (bool, error) {
	resp, err := u.inner.Wipe(ctx)
	if err != nil {
		return false, err
	}
	return resp.Bool(u.userID)
}

// Paginate reads one page of the user's feed.
func (u *UserActivity) Paginate(ctx context.Context, page Page) (PageResult, error) {
	resp, err := u.inner.Paginate(ctx, page)
	if err != nil {
		return PageResult{}, err
	}
	return resp.Page(u.userID)
}

// Fetch reads the user's full feed, newest first.
func (u *UserActivity) Fetch(ctx context.Context) ([]Event, error) {
	resp, err := u.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Events(u.userID)
}

// ResetLastRead advances the watermark and returns its new value.
func (u *UserActivity) ResetLastRead(ctx context.Context, at float64) (float64, error) {
	resp, err := u.inner.ResetLastRead(ctx, at)
	if err != nil {
		return 0, err
	}
	return resp.Float(u.userID)
}

// TotalCount returns the user's event count.
func (u *UserActivity) TotalCount(ctx context.Context) (int, error) {
	resp, err := u.inner.TotalCount(ctx)
	if err != nil {
		return 0, err
	}
	return resp.Int(u.userID)
}

// UnreadCount returns the count of events past the watermark.
func (u *UserActivity) UnreadCount(ctx context.Context) (int, error) {
	resp, err := u.inner.UnreadCount(ctx)
	if err != nil {
		return 0, err
	}
	return resp.Int(u.userID)
}

// LastRead returns the user's watermark.
func (u *UserActivity) LastRead(ctx context.Context) (float64, error) {
	resp, err := u.inner.LastRead(ctx)
	if err != nil {
		return 0, err
	}
	return resp.Float(u.userID)
}
