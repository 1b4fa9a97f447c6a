package model

import (
	"errors"
	"strings"

	"hermannm.dev/enumnames"
)

type QueryType uint8

const (
	QueryTypeDAX QueryType = iota + 1
	QueryTypeMDX
)

var queryTypeNames = enumnames.NewMap(map[QueryType]string{
	QueryTypeDAX: "DAX",
	QueryTypeMDX: "MDX",
})

func (queryType QueryType) IsValid() bool {
	return queryTypeNames.ContainsEnumValue(queryType)
}

func (queryType QueryType) String() string {
	return queryTypeNames.GetNameOrFallback(queryType, "INVALID_QUERY_TYPE")
}

func (queryType QueryType) MarshalJSON() ([]byte, error) {
	return queryTypeNames.MarshalToNameJSON(queryType)
}

func (queryType *QueryType) UnmarshalJSON(bytes []byte) error {
	return queryTypeNames.UnmarshalFromNameJSON(bytes, queryType)
}

// ParseQueryType accepts DAX or MDX in any casing, with surrounding whitespace.
// An empty string means DAX.
func ParseQueryType(name string) (QueryType, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "DAX":
		return QueryTypeDAX, true
	case "MDX":
		return QueryTypeMDX, true
	default:
		return 0, false
	}
}

var (
	ErrMissingQuery     = errors.New("Request must include 'query'.")
	ErrInvalidQueryType = errors.New("queryType must be 'DAX' or 'MDX'.")
)

// QueryRequest is the body of POST /query. Field names are matched
// case-insensitively by encoding/json.
type QueryRequest struct {
	QueryType *string `json:"queryType,omitempty"`
	Query     string  `json:"query"`
}

// Query is a validated QueryRequest.
type Query struct {
	Type      QueryType
	Statement string
}

func (req QueryRequest) Validate() (Query, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Query{}, ErrMissingQuery
	}

	var typeName string
	if req.QueryType != nil {
		typeName = *req.QueryType
		// An explicit blank type is not the same as an absent one.
		if strings.TrimSpace(typeName) == "" {
			return Query{}, ErrInvalidQueryType
		}
	}

	queryType, ok := ParseQueryType(typeName)
	if !ok {
		return Query{}, ErrInvalidQueryType
	}

	return Query{Type: queryType, Statement: req.Query}, nil
}

type QueryResponse struct {
	Rows []Row `json:"rows"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
