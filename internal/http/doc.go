// Package http provides a transport-agnostic HTTP client core: a fluent Request
// whose build pipeline turns params, auth, proxy, cookies and headers into a Call,
// a Provider contract that transports implement, and buffered or streaming
// delivery of the resulting Response.
//
// Basic Usage:
//
//	provider, err := engine.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req := http.NewRequest(provider).
//	    SetURI("https://api.example.com/users").
//	    AddParam("limit", 10).
//	    SetAuth(http.AuthBasic, "user", "secret")
//
//	resp, err := req.Call(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if resp.IsOk() {
//	    fmt.Println(resp.BodyString())
//	}
//
// Streaming Example:
//
//	req := http.NewStreaming(provider).SetBufferSize(8192)
//	req.SetURI("https://example.com/large.bin")
//	req.On(http.EventProgress, func(e *http.Event) event.Result {
//	    out.Write(e.Chunk)
//	    return event.Continue
//	})
//
//	if _, err := req.Call(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// HTTP error statuses are not errors: check Response.IsOk, IsFail and IsError.
//
// Thread Safety:
//
// Request, Streaming and Response are single-owner values and must not be used
// from several goroutines at once.
package http
