package feedspec

import (
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/bitechdev/FeedSpec/pkg/logger"
)

// Dump serializes the provider's state to a flat JSON document mapping
// each user ID to {events: [{value, at}...], last_read}. The document
// round-trips losslessly through Restore.
func (mp *MemoryProvider) Dump() (string, error) {
	mp.mu.RLock()
	userIDs := make([]string, 0, len(mp.states))
	for userID := range mp.states {
		userIDs = append(userIDs, userID)
	}
	mp.mu.RUnlock()
	sort.Strings(userIDs)

	doc := "{}"
	for _, userID := range userIDs {
		st := mp.state(userID, false)
		if st == nil {
			continue
		}
		st.mu.Lock()
		events := st.sortedLocked()
		lastRead := st.lastRead
		st.mu.Unlock()

		var err error
		path := escapeDumpKey(userID)
		doc, err = sjson.Set(doc, path+".events", events)
		if err != nil {
			return "", wrapError(ErrProvider, "dump", userID, err)
		}
		doc, err = sjson.Set(doc, path+".last_read", lastRead)
		if err != nil {
			return "", wrapError(ErrProvider, "dump", userID, err)
		}
	}
	return doc, nil
}

// Restore replaces the provider's state with the contents of a dump
// document produced by Dump.
func (mp *MemoryProvider) Restore(doc string) error {
	parsed := gjson.Parse(doc)
	if !parsed.IsObject() {
		return configError("dump document is not an object")
	}

	states := make(map[string]*userState)
	var restoreErr error
	parsed.ForEach(func(key, record gjson.Result) bool {
		userID := key.String()
		st := &userState{
			byValue:  make(map[string]float64),
			lastRead: record.Get("last_read").Float(),
		}
		record.Get("events").ForEach(func(_, ev gjson.Result) bool {
			value := ev.Get("value")
			if !value.Exists() {
				restoreErr = configError("dump record for user %s has an event without a value", userID)
				return false
			}
			st.byValue[value.String()] = ev.Get("at").Float()
			return true
		})
		if restoreErr != nil {
			return false
		}
		states[userID] = st
		return true
	})
	if restoreErr != nil {
		return restoreErr
	}

	mp.mu.Lock()
	mp.states = states
	mp.mu.Unlock()

	logger.Debug("Memory feed provider restored %d users from dump", len(states))
	return nil
}

// DumpFile writes the dump document to path.
func (mp *MemoryProvider) DumpFile(path string) error {
	doc, err := mp.Dump()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(doc), 0o644)
}

// RestoreFile loads a dump document from path.
func (mp *MemoryProvider) RestoreFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return configError("cannot read dump file %s: %v", path, err)
	}
	return mp.Restore(string(data))
}

// escapeDumpKey escapes sjson/gjson path syntax in user IDs so IDs
// containing dots or wildcards stay intact as single map keys.
func escapeDumpKey(userID string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		".", "\\.",
		"*", "\\*",
		"?", "\\?",
		"|", "\\|",
		"#", "\\#",
		"@", "\\@",
	)
	return replacer.Replace(userID)
}
