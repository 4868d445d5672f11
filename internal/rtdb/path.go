package rtdb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// splitPath normalizes a slash path into its segments.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// parentOf splits a path into its parent and final segment.
func parentOf(path string) (string, string) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return "", ""
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1]
}

// pathsRelated reports whether a change at wrote is visible from a
// subscription rooted at sub: one path must be an ancestor of (or equal to)
// the other.
func pathsRelated(sub, wrote []string) bool {
	n := len(sub)
	if len(wrote) < n {
		n = len(wrote)
	}
	for i := 0; i < n; i++ {
		if sub[i] != wrote[i] {
			return false
		}
	}
	return true
}

// NewPushID generates a unique child key for append semantics. The
// millisecond prefix keeps keys roughly time-ordered; uniqueness comes from
// the random suffix, consumers still sort by message timestamp.
func NewPushID() string {
	ms := strconv.FormatInt(time.Now().UnixMilli(), 36)
	for len(ms) < 9 {
		ms = "0" + ms
	}
	return ms + "-" + uuid.NewString()[:8]
}

// toTree round-trips a value through JSON so every implementation stores the
// same generic shape (maps, slices, scalars) regardless of the Go type the
// caller handed in.
func toTree(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value not representable in the tree: %w", err)
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}
