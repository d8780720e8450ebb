package cookies

import (
	"net/http"
	"sync"
)

// RequestJar reads cookies from an incoming request and writes Set-Cookie headers on its response.
// Writes are kept in an overlay so later reads within the same request observe them.
type RequestJar struct {
	r *http.Request
	w http.ResponseWriter

	mu      sync.Mutex
	overlay map[string]*string // nil value marks a deletion
}

var _ Jar = (*RequestJar)(nil)

// NewRequestJar binds a jar to one request/response pair.
func NewRequestJar(w http.ResponseWriter, r *http.Request) *RequestJar {
	return &RequestJar{r: r, w: w, overlay: make(map[string]*string)}
}

func (j *RequestJar) Get(name string) (string, bool) {
	j.mu.Lock()
	v, ok := j.overlay[name]
	j.mu.Unlock()
	if ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}

	c, err := j.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (j *RequestJar) Set(name, value string, attrs Attributes) {
	if attrs.expired() {
		j.Delete(name)
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	http.SetCookie(j.w, attrs.cookie(name, value))
	j.overlay[name] = &value
}

func (j *RequestJar) Delete(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	http.SetCookie(j.w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	j.overlay[name] = nil
}
