package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	http.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *bodyCacheWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Cache is a middleware for in-memory caching of GET responses. Dashboard
// statistics are aggregate queries; serving them from cache for a short TTL
// keeps repeated dashboard loads off the database.
func Cache(store *cache.Cache, duration time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			key := c.Request().RequestURI
			if resp, found := store.Get(key); found {
				cached := resp.(cachedResponse)
				for k, v := range cached.headers {
					c.Response().Header()[k] = v
				}
				c.Response().WriteHeader(cached.status)
				_, err := c.Response().Write(cached.body)
				return err
			}

			bcw := &bodyCacheWriter{
				ResponseWriter: c.Response().Writer,
				body:           bytes.NewBuffer(nil),
				status:         http.StatusOK,
			}
			c.Response().Writer = bcw

			err := next(c)

			// Only cache successful responses
			if err == nil && bcw.status >= 200 && bcw.status < 300 {
				store.Set(key, cachedResponse{
					status: bcw.status,
					// Make a copy of the header map.
					headers: c.Response().Header().Clone(),
					body:    bcw.body.Bytes(),
				}, duration)
			}
			return err
		}
	}
}
