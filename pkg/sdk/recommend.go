package styletelling

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"
)

const maxEventBytes = 4 << 20

// Event kinds sent on the recommendation stream.
const (
	EventProgress = "progress"
	EventPartial  = "partial"
	EventDegraded = "degraded"
	EventCacheHit = "cache_hit"
	EventResult   = "result"
	EventError    = "error"
)

// Event is one stage notification from the recommendation stream.
// Data holds the stage payload as sent by the server.
type Event struct {
	Kind     string          `json:"kind"`
	Stage    string          `json:"stage"`
	Progress float64         `json:"progress"`
	Message  string          `json:"message,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Recommendation decodes the payload of a result event.
func (e Event) Recommendation() (Recommendation, error) {
	if e.Kind != EventResult {
		return Recommendation{}, fmt.Errorf("styletelling: %s event carries no recommendation", e.Kind)
	}
	var rec Recommendation
	if err := json.Unmarshal(e.Data, &rec); err != nil {
		return Recommendation{}, fmt.Errorf("decode recommendation: %w", err)
	}
	return rec, nil
}

type recommendRequest struct {
	Query string `json:"query"`
}

// Recommend runs a query and waits for the ranked outcome.
func (c *Client) Recommend(ctx context.Context, query string) (rec Recommendation, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommend", start, err) }()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/recommendations", nil, recommendRequest{Query: query})
	if err != nil {
		return Recommendation{}, err
	}
	req.Header.Set("Accept", "application/json")
	err = c.do(req, &rec)
	return rec, err
}

// Stream runs a query and yields stage events as the server emits them.
// The sequence ends after the result event. A server-side failure is
// yielded once as an *APIError; a stream that closes early yields
// io.ErrUnexpectedEOF.
func (c *Client) Stream(ctx context.Context, query string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		start := time.Now()
		var err error
		defer func() { c.obs.observe("stream", start, err) }()

		var resp *http.Response
		resp, err = c.openStream(ctx, query)
		if err != nil {
			yield(Event{}, err)
			return
		}
		defer resp.Body.Close()

		cached := false
		for ev, rerr := range readEvents(resp.Body) {
			if rerr != nil {
				err = rerr
				yield(Event{}, err)
				return
			}
			switch ev.Kind {
			case EventCacheHit:
				cached = true
			case EventResult:
				if cached {
					ev.Data = markCached(ev.Data)
				}
				yield(ev, nil)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
		err = io.ErrUnexpectedEOF
		yield(Event{}, err)
	}
}

func (c *Client) openStream(ctx context.Context, query string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/recommendations", nil, recommendRequest{Query: query})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

// readEvents parses server-sent event frames. Frames are separated by a
// blank line; only the event and data fields are used.
func readEvents(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64<<10), maxEventBytes)

		var kind string
		var data strings.Builder
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if data.Len() == 0 {
					kind = ""
					continue
				}
				ev, err := parseFrame(kind, data.String())
				kind = ""
				data.Reset()
				if !yield(ev, err) || err != nil {
					return
				}
			case strings.HasPrefix(line, "event:"):
				kind = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Event{}, fmt.Errorf("read event stream: %w", err))
		}
	}
}

func parseFrame(kind, data string) (Event, error) {
	if kind == EventError {
		apiErr := &APIError{}
		if err := json.Unmarshal([]byte(data), apiErr); err != nil {
			return Event{}, fmt.Errorf("decode error event: %w", err)
		}
		return Event{}, apiErr
	}
	var ev Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return Event{}, fmt.Errorf("decode %s event: %w", kind, err)
	}
	if ev.Kind == "" {
		ev.Kind = kind
	}
	return ev, nil
}

// markCached sets the cached flag on a result payload.
func markCached(data json.RawMessage) json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return data
	}
	m["cached"] = json.RawMessage("true")
	out, err := json.Marshal(m)
	if err != nil {
		return data
	}
	return out
}
