package www

import (
	"net/http"
	"strconv"
)

// queryInt reads an integer query parameter. Missing, malformed or values
// below lo give def, values above hi are capped.
func queryInt(r *http.Request, key string, def, lo, hi int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < lo {
		return def
	}
	return min(v, hi)
}
