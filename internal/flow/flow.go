// Package flow holds the values an interception engine hands to addons: a
// read-only request view and a response slot that addons may fill before the
// upstream fetch and inspect or annotate afterwards.
package flow

// Request is the request as observed on the wire. Addons must not mutate it.
type Request struct {
	Method string
	URL    string
	Header Header
}

// Response is a complete, buffered response.
type Response struct {
	StatusCode int
	Header     Header
	Body       []byte
}

// Flow pairs one request with its response slot. Response stays nil until an
// addon synthesizes one or the engine stores the upstream result.
type Flow struct {
	ID       string
	Request  Request
	Response *Response
}

// New returns a Flow for method and url with an empty response slot.
func New(method, url string) *Flow {
	return &Flow{Request: Request{Method: method, URL: url}}
}

// Responded reports whether the response slot has been filled.
func (f *Flow) Responded() bool {
	return f.Response != nil
}
