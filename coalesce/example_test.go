package coalesce_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/edgegate/coalesce"
)

func ExampleCoalescer_Do() {
	c := coalesce.New[string]()

	var upstreamCalls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		upstreamCalls.Add(1)
		<-release
		return "dns records for example.com", nil
	}

	// Five agents ask the same question at the same time.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.Do(context.Background(), "cust_acme|dns_records|list", fetch)
		}()
	}

	// Hold the flight open until everyone has joined, then let it finish.
	for c.Stats().Total < 5 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	fmt.Println("Upstream calls:", upstreamCalls.Load())
	fmt.Println("Coalesced:", c.Stats().Coalesced)
	// Output:
	// Upstream calls: 1
	// Coalesced: 4
}

func ExampleCoalescer_Do_sequential() {
	c := coalesce.New[string]()

	var upstreamCalls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		upstreamCalls.Add(1)
		return "zone status: active", nil
	}

	// Sequential calls never share: the window closes when the producer
	// completes.
	_, _, _ = c.Do(context.Background(), "cust_acme|zones|get", fetch)
	_, _, _ = c.Do(context.Background(), "cust_acme|zones|get", fetch)

	fmt.Println("Upstream calls:", upstreamCalls.Load())
	// Output:
	// Upstream calls: 2
}
