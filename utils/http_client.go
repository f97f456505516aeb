package utils

import (
	"net/http"
	"sync"
	"time"
)

var (
	httpClient *http.Client
	clientOnce sync.Once
)

// GetHTTPClient returns a shared HTTP client with connection pooling.
// Used for requests that need direct control over the request body,
// such as multipart uploads.
func GetHTTPClient() *http.Client {
	clientOnce.Do(func() {
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
		httpClient = &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		}
	})
	return httpClient
}

// CloseHTTPClient closes idle connections held by the shared client.
func CloseHTTPClient() {
	if httpClient != nil {
		httpClient.CloseIdleConnections()
	}
}
