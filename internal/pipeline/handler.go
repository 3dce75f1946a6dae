package pipeline

import "net/http"

// Handler adapts the dispatcher to net/http. Terminal responses are
// rendered directly; pass-throughs have their accumulated headers and
// cookies applied and then hand the request to the origin handler.
func (d *Dispatcher) Handler(origin http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := d.Dispatch(r.Context(), r)
		if resp.IsNext() {
			resp.ApplyHeaders(w)
			origin.ServeHTTP(w, r)
			return
		}
		resp.Write(w)
	})
}
