// Package wire implements the JSON frame contract of §4.2: encoding a
// single Notification, and decoding a string that may contain one or
// more concatenated JSON values without a malformed value aborting the
// values after it.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/kwheelans/pass-it-on/internal/notification"
)

// Encode renders a Notification as its single-line JSON frame.
func Encode(n notification.Notification) ([]byte, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	return b, nil
}

// Decode parses exactly one JSON-encoded Notification. DecodeStream
// calls it once per frame; the interfaces themselves forward raw
// payloads undecoded.
func Decode(payload []byte) (notification.Notification, error) {
	var n notification.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return notification.Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	return n, nil
}

// Result pairs a decoded Notification with any error that occurred
// decoding it, preserving position within a multi-value batch.
type Result struct {
	Notification notification.Notification
	Err          error
}

// DecodeStream decodes a payload that may contain one or more
// whitespace-optional concatenated JSON objects, such as a FIFO read
// that captured several writes. Returns one Result per JSON value
// found; a malformed value produces an Err result at its position but
// does not prevent decoding values after it.
//
// Frame boundaries are found with splitObjects, which tracks brace
// depth (string/escape aware) rather than relying on json.Decoder to
// resynchronize after an error — the decoder has no way to know where
// a syntactically broken value ends, but a depth-balanced span can
// still be located and handed to json.Unmarshal on its own, isolating
// the failure to that one frame. Any non-whitespace byte found between
// object spans — a stray number, bare word, or quoted string that
// never opens a `{` — is itself collected into its own frame, so it
// surfaces as an Err result at its position instead of being dropped.
func DecodeStream(payload []byte) []Result {
	frames := splitObjects(payload)
	results := make([]Result, 0, len(frames))

	for _, f := range frames {
		n, err := Decode(f)
		if err != nil {
			results = append(results, Result{Err: err})
			continue
		}
		results = append(results, Result{Notification: n})
	}

	return results
}

// splitObjects scans payload for consecutive top-level `{...}` spans,
// ignoring braces that occur inside JSON string literals (honoring
// backslash escapes) and whitespace between spans. Each returned slice
// is handed independently to json.Unmarshal, so a syntax error confined
// to one span never affects the spans before or after it.
//
// A run of non-whitespace bytes at depth 0 that never opens a `{` —
// a bare number, word, or quoted string dropped between frames — is
// collected as its own span rather than skipped, so it reaches
// json.Unmarshal and fails there instead of vanishing silently.
func splitObjects(payload []byte) [][]byte {
	var frames [][]byte
	depth := 0
	inString := false
	escaped := false
	start := -1
	strayStart := -1

	flushStray := func(end int) {
		if strayStart >= 0 {
			frames = append(frames, payload[strayStart:end])
			strayStart = -1
		}
	}

	for i, c := range payload {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		if depth == 0 {
			switch {
			case c == '{':
				flushStray(i)
				start = i
				depth++
			case c == ' ' || c == '\t' || c == '\n' || c == '\r':
				flushStray(i)
			default:
				if strayStart < 0 {
					strayStart = i
				}
				if c == '"' {
					inString = true
				}
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				frames = append(frames, payload[start:i+1])
				start = -1
			}
		}
	}

	flushStray(len(payload))

	return frames
}
