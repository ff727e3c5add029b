// Package http provides the two HTTP services the foundation binds: the
// request context ("request") and an outbound client facade ("http").
//
// # Request
//
// Request wraps *http.Request. The foundation builds it from the CGI
// environment of the current process; handlers can wrap any request.
//
//	req, err := gohttp.FromEnvironment()
//	req := gohttp.NewRequest(r)
//
//	var payload struct {
//	    Name string `json:"name"`
//	}
//	if err := req.Bind(&payload); err != nil { ... }
//
//	name := req.Input("name", "default")
//	page := req.Query("page", "1")
//	id   := req.RouteParam("id") // chi
//	tok  := req.BearerToken()
//
// # Client
//
// Client holds the container it was created from. Binding a *http.Client
// under ClientKey swaps the transport without touching callers.
//
//	app.Set(gohttp.ClientKey, &http.Client{Timeout: 5 * time.Second})
//
//	resp, err := client.Get(ctx, "https://api.example.com/items", url.Values{"page": {"2"}})
//	var items []Item
//	err = gohttp.ParseJSON(resp, &items)
package http
