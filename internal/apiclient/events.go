package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"raices-verdes/internal/domain"
)

// CartEvents opens the cart event stream. It returns once the server has
// confirmed the subscription; change events then arrive on the channel until
// ctx ends, the server closes the stream, or a signout event is delivered.
func (c *Client) CartEvents(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/me/cart/events", nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	name, _, err := nextEvent(scanner)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if name != "ready" {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream: expected ready, got %q", name)
	}

	out := make(chan domain.ChangeEvent)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		for {
			name, data, err := nextEvent(scanner)
			if err != nil {
				return
			}
			if name != "change" {
				continue
			}
			var ev domain.ChangeEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Kind == domain.ChangeSignOut {
				return
			}
		}
	}()
	return out, nil
}

// nextEvent reads one server-sent event: field lines up to a blank line.
func nextEvent(s *bufio.Scanner) (name, data string, err error) {
	var lines []string
	seen := false
	for s.Scan() {
		line := s.Text()
		if line == "" {
			if seen {
				return name, strings.Join(lines, "\n"), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		seen = true
		switch field {
		case "event":
			name = value
		case "data":
			lines = append(lines, value)
		}
	}
	if err := s.Err(); err != nil {
		return "", "", err
	}
	return "", "", fmt.Errorf("event stream closed")
}
