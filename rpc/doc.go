// Package rpc is a small HTTP client addressed by route path and method.
//
// Routes are declared once in a Registry. A Client expands ":name" path
// parameters, encodes query strings and bodies from an Input, and sends the
// request through an http.Client whose transport can carry auth headers
// and OpenTelemetry instrumentation. Request returns the raw *http.Response;
// Call also classifies it with the response package.
//
// # Methods
//
// Methods are accepted as "GET", "get" or "$get" and are normalized to the
// upper-case form everywhere.
//
// # Typed routes
//
// Define binds input and output types to a registered route:
//
//	reg := rpc.NewRegistry()
//	getUser, _ := rpc.Define[GetUserInput, GetUserOutput](reg, "$get", "/users/:id")
//	res, err := getUser.Call(ctx, client, GetUserInput{Param: IDParam{ID: "42"}})
//
// # Resilience
//
// WithRateLimiter, WithBulkhead and WithCircuitBreaker run every request
// through the resilience package. Circuit breakers are kept per route.
package rpc
