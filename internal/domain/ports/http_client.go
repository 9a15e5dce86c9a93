package ports

import "net/http"

// HTTPClient defines the interface for making HTTP requests.
// Gateway adapters take this so tests can swap in httptest servers or stubs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
