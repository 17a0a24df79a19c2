// nolint
package feedspec

import (
	"context"
	"fmt"
)

// Example demonstrates basic single-user usage over the memory provider.
func Example() {
	// 1. Define a feed backed by the in-memory provider
	registry := NewRegistry()
	feed, err := registry.Define("notifications", FeedConfig{
		Provider: NewMemoryProvider(MemoryProviderOptions{MaxSize: 500}),
		PerPage:  25,
	})
	if err != nil {
		fmt.Println("define failed:", err)
		return
	}

	ctx := context.Background()

	// 2. Store events for one user
	user := feed.ActivityFor("42")
	user.Store(ctx, NewEventAt("order:1001:shipped", 1700000100))
	user.Store(ctx, NewEventAt("order:1002:shipped", 1700000200))

	// 3. Read the first page and mark it read
	page, err := user.Paginate(ctx, Page{Number: 1, WithTotal: true})
	if err != nil {
		fmt.Println("paginate failed:", err)
		return
	}
	fmt.Println("events on page:", len(page.Events), "total:", page.Total)

	unread, _ := user.UnreadCount(ctx)
	fmt.Println("unread after read:", unread)

	// Output:
	// events on page: 2 total: 2
	// unread after read: 0
}

// ExampleFeed_Activity demonstrates a batched multi-user call.
func ExampleFeed_Activity() {
	registry := NewRegistry()
	feed, _ := registry.Define("timeline", FeedConfig{
		Provider:  NewMemoryProvider(MemoryProviderOptions{}),
		BatchSize: 2,
	})

	ctx := context.Background()
	activity := feed.Activity("1", "2", "3")

	resp, err := activity.Store(ctx, NewEventAt("post:7", 1700000000))
	if err != nil {
		fmt.Println("store failed:", err)
		return
	}

	resp.Each(func(userID string, value interface{}, err error) {
		fmt.Printf("%s: %v\n", userID, value)
	})

	// Output:
	// 1: true
	// 2: true
	// 3: true
}

// ExampleFeed_WithScope demonstrates the scoped block form.
func ExampleFeed_WithScope() {
	registry := NewRegistry()
	feed, _ := registry.Define("alerts", FeedConfig{
		Provider: NewMemoryProvider(MemoryProviderOptions{}),
	})

	bindings := map[string]interface{}{"source": "billing"}
	err := feed.WithScope([]string{"7"}, bindings, func(scope *Scope) error {
		source, _ := scope.Binding("source")
		_, err := scope.Store(context.Background(), NewEventAt(fmt.Sprintf("%v:invoice-due", source), 1700000000))
		return err
	})
	if err != nil {
		fmt.Println("scope failed:", err)
		return
	}
	fmt.Println("stored")

	// Output:
	// stored
}
