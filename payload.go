package dromos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultBodyLimit is the largest request body read when no limit is
// configured with WithBodyLimit.
const DefaultBodyLimit int64 = 1 << 20

// Payload is the data of a request: the JSON body for requests that carry one,
// otherwise the query string. Both are presented the same way, so a handler
// can decode {"pong": "2"} and ?pong=2 into the same struct.
type Payload struct {
	body  []byte
	query url.Values
}

func newBodyPayload(body []byte) *Payload {
	return &Payload{body: body}
}

func newQueryPayload(query url.Values) *Payload {
	if query == nil {
		query = url.Values{}
	}
	return &Payload{query: query}
}

// IsBody reports whether the payload came from a request body.
func (p *Payload) IsBody() bool {
	return p != nil && p.body != nil
}

// Raw returns the request body. It is nil for query payloads.
func (p *Payload) Raw() []byte {
	if p == nil {
		return nil
	}
	return p.body
}

// Query returns the query values. It is nil for body payloads.
func (p *Payload) Query() url.Values {
	if p == nil {
		return nil
	}
	return p.query
}

// Unmarshal decodes the payload into the value pointed to by into. A body is
// decoded as JSON. A query is first converted to a JSON object where keys with
// a single value hold a string and repeated keys hold an array of strings.
func (p *Payload) Unmarshal(into any) error {
	if p.IsBody() {
		return json.Unmarshal(p.body, into)
	}
	queryJSON, err := json.Marshal(p.queryMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(queryJSON, into)
}

// Map returns the payload as a generic JSON object. A body that is not a JSON
// object results in an error.
func (p *Payload) Map() (map[string]any, error) {
	if p.IsBody() {
		m := map[string]any{}
		if err := json.Unmarshal(p.body, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	return p.queryMap(), nil
}

func (p *Payload) queryMap() map[string]any {
	m := map[string]any{}
	if p == nil {
		return m
	}
	for key, values := range p.query {
		switch len(values) {
		case 0:
		case 1:
			m[key] = values[0]
		default:
			m[key] = values
		}
	}
	return m
}

// readPayload builds the payload of an HTTP request. The body is used when
// it is not blank, and is put back on the request so later handlers in a
// middleware chain can still read it.
func readPayload(req *http.Request, limit int64) (*Payload, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return newQueryPayload(req.URL.Query()), nil
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, limit+1))
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	if int64(len(body)) > limit {
		return nil, NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return newQueryPayload(req.URL.Query()), nil
	}
	if !json.Valid(body) {
		return nil, NewHTTPError(http.StatusBadRequest, "request body is not valid JSON")
	}
	return newBodyPayload(body), nil
}
