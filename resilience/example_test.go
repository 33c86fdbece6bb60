package resilience_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/rpcquery/resilience"
	"github.com/jonwraymond/rpcquery/response"
)

func ExampleIsTransient() {
	fmt.Println(resilience.IsTransient(response.NewError("down", 503, response.FormatText)))
	fmt.Println(resilience.IsTransient(response.NewError("bad", 400, response.FormatText)))
	// Output:
	// true
	// false
}

func ExampleRetry_Delay() {
	r := resilience.NewRetry(resilience.RetryConfig{InitialDelay: time.Second})
	for i := 1; i <= 3; i++ {
		fmt.Println(r.Delay(i))
	}
	// Output:
	// 1s
	// 2s
	// 4s
}

func ExampleDo() {
	exec := resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
		})),
	)

	attempt := 0
	res, err := resilience.Do(context.Background(), exec, func(ctx context.Context) (*response.Result, error) {
		attempt++
		if attempt < 2 {
			return nil, response.NewError("busy", 503, response.FormatText)
		}
		return &response.Result{Data: "ready", Status: 200, Format: response.FormatText}, nil
	})
	fmt.Println(res.Data, err, attempt)
	// Output: ready <nil> 2
}
