package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolServerName    = "aasquery"
	ToolServerVersion = "1.0.0"
	QueryToolName     = "query_analysis_services"
)

// QueryToolInput holds the arguments of the query tool. QueryType is filled
// with DAX by the schema default when the caller leaves it out.
type QueryToolInput struct {
	Query     string `json:"query"`
	QueryType string `json:"query_type,omitempty"`
}

func queryToolSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type: "string",
				Description: "The DAX or MDX query to execute. " +
					"Example DAX: EVALUATE TOPN(10, 'Product') " +
					"Example MDX: SELECT [Measures].[Sales Amount] ON 0 FROM [AdventureWorks]",
			},
			"query_type": {
				Type:        "string",
				Enum:        []any{"DAX", "MDX"},
				Default:     json.RawMessage(`"DAX"`),
				Description: "The type of query: DAX for tabular models, MDX for multidimensional models",
			},
		},
		Required: []string{"query"},
	}
}

// NewToolServer exposes the query service as an MCP tool that agents can call.
// Results are rendered with FormatResult.
func NewToolServer(c *Client) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ToolServerName, Version: ToolServerVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: QueryToolName,
		Description: "Execute DAX or MDX queries against Azure Analysis Services. " +
			"Supports DAX queries for tabular models and MDX queries for multidimensional models. " +
			"Returns query results as rows of data.",
		InputSchema: queryToolSchema(),
	}, c.handleQueryTool)

	return server
}

func (c *Client) handleQueryTool(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryToolInput,
) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, nil, errors.New("query parameter is required")
	}

	rows, err := c.Query(ctx, input.QueryType, input.Query)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatResult(rows, err)}},
	}, nil, nil
}
