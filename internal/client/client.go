package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"

	"aasquery/backend/internal/model"
)

const DefaultTimeout = 60 * time.Second

// Client calls the query service over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
}

func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{url: url, httpClient: httpClient}
}

// ResponseError is a non-2xx answer from the service. Message holds the
// {"error": ...} value when the body was JSON, otherwise the raw body.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (err *ResponseError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", err.StatusCode, err.Message)
}

func (c *Client) Query(ctx context.Context, queryType string, query string) ([]model.Row, error) {
	request := model.QueryRequest{Query: query}
	if queryType != "" {
		request.QueryType = &queryType
	}

	var response model.QueryResponse
	var errBody string
	var statusCode int

	err := requests.
		URL(c.url).
		Client(c.httpClient).
		BodyJSON(request).
		AddValidator(func(res *http.Response) error {
			statusCode = res.StatusCode
			return nil
		}).
		AddValidator(requests.ValidatorHandler(requests.DefaultValidator, requests.ToString(&errBody))).
		ToJSON(&response).
		Post().
		Fetch(ctx)
	if err != nil {
		if statusCode >= 400 {
			return nil, &ResponseError{StatusCode: statusCode, Message: errorMessage(errBody)}
		}
		return nil, err
	}

	if response.Rows == nil {
		response.Rows = []model.Row{}
	}
	return response.Rows, nil
}

func errorMessage(body string) string {
	var errResponse model.ErrorResponse
	if err := json.Unmarshal([]byte(body), &errResponse); err == nil && errResponse.Error != "" {
		return errResponse.Error
	}
	return strings.TrimSpace(body)
}
