package rpc

import (
	"context"

	"github.com/jonwraymond/rpcquery/response"
)

// Route is a registered route with its input and output types.
type Route[In, Out any] struct {
	RouteInfo
}

// Define registers method and path in reg and returns the typed route.
func Define[In, Out any](reg *Registry, method, path string) (Route[In, Out], error) {
	info, err := reg.Register(method, path)
	if err != nil {
		return Route[In, Out]{}, err
	}
	return Route[In, Out]{RouteInfo: info}, nil
}

// Input converts in to an Input.
func (r Route[In, Out]) Input(in In) (Input, error) {
	return ToInput(in)
}

// Call sends in to the route through c and decodes the response data.
func (r Route[In, Out]) Call(ctx context.Context, c *Client, in In, opts ...RequestOption) (*Result[Out], error) {
	input, err := ToInput(in)
	if err != nil {
		return nil, err
	}
	res, err := c.Call(ctx, r.Path, r.Method, input, opts...)
	if err != nil {
		return nil, err
	}
	return Decode[Out](res)
}

// Result is a response result with typed data.
type Result[Out any] struct {
	Data   Out
	Status int
	Format response.Format
}

// Decode converts res into a typed Result.
func Decode[Out any](res *response.Result) (*Result[Out], error) {
	data, err := response.As[Out](res)
	if err != nil {
		return nil, err
	}
	return &Result[Out]{Data: data, Status: res.Status, Format: res.Format}, nil
}
