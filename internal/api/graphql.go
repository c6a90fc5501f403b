package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/bitly/go-simplejson"
	"github.com/cockroachdb/errors"

	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// GraphQLRequest is a single GraphQL operation.
type GraphQLRequest struct {
	URL           string
	OperationName string
	Query         string
	Variables     map[string]any
	Header        http.Header

	// Form posts query and variables as application/x-www-form-urlencoded
	// fields instead of a JSON document.
	Form bool

	// Authenticated is passed through to Request.
	Authenticated bool

	Provider string
}

// GraphQL runs gq and returns its data node. A non-empty errors array is
// reported as a ProtocolError carrying the first message.
func (c *Client) GraphQL(ctx context.Context, gq GraphQLRequest) (*simplejson.Json, error) {
	req := &Request{
		Method:        http.MethodPost,
		URL:           gq.URL,
		Header:        gq.Header,
		Authenticated: gq.Authenticated,
		Provider:      gq.Provider,
	}
	if gq.Form {
		form := url.Values{"query": {gq.Query}}
		if len(gq.Variables) > 0 {
			vars, err := json.Marshal(gq.Variables)
			if err != nil {
				return nil, errors.Wrap(err, "marshal graphql variables")
			}
			form.Set("variables", string(vars))
		}
		req.Form = form
	} else {
		body := map[string]any{"query": gq.Query}
		if gq.OperationName != "" {
			body["operationName"] = gq.OperationName
		}
		if gq.Variables != nil {
			body["variables"] = gq.Variables
		}
		req.JSON = body
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	if errs, ok := js.CheckGet("errors"); ok {
		if arr, _ := errs.Array(); len(arr) > 0 {
			msg := errs.GetIndex(0).Get("message").MustString("graphql error")
			return nil, &apierrors.ProtocolError{Message: msg, URL: gq.URL}
		}
	}
	data, ok := js.CheckGet("data")
	if !ok {
		return nil, apierrors.Shape("graphql response without data")
	}
	return data, nil
}
