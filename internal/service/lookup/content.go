package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"reader-go/internal/model"
)

var ErrContentNotFound = errors.New("content not found")

const contentByIDQuery = `
query getContentById($id: String!) {
  content_by_id(id: $id) {
    id
    title
    text
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type contentByIDResponse struct {
	Data struct {
		ContentByID *model.Content `json:"content_by_id"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// ContentByID loads the title and text stored under id.
func (c *Client) ContentByID(ctx context.Context, id string) (*model.Content, error) {
	req := graphqlRequest{
		Query:     contentByIDQuery,
		Variables: map[string]any{"id": id},
	}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/graphql", req)
	if err != nil {
		return nil, fmt.Errorf("content %q: %w", id, err)
	}

	var resp contentByIDResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("content %q: decode response: %w", id, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("content %q: graphql: %s", id, strings.Join(msgs, "; "))
	}
	if resp.Data.ContentByID == nil {
		return nil, fmt.Errorf("content %q: %w", id, ErrContentNotFound)
	}
	return resp.Data.ContentByID, nil
}
