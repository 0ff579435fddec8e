// Package guardtest runs a scripted stand-in for the guardrails API so the client can be tested
// end to end over real HTTP.
package guardtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// Reply is one scripted response.
type Reply struct {
	// Status is the HTTP status code; 0 means 200.
	Status int
	// Body is sent as is when it is a string or []byte, and JSON encoded otherwise.
	Body any
	// Delay holds the response back. The handler gives up early if the client goes away.
	Delay time.Duration
}

// Request is what the server received.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// Server is a fake guardrails API. Replies are served in the order they were queued, regardless of
// the endpoint; once the queue is empty each endpoint falls back to a canned success.
type Server struct {
	// URL is the base URL to configure the client with, including the /v1 prefix.
	URL string
	// ImageURL is the prefix under which images added with AddImage are served.
	ImageURL string

	srv *httptest.Server

	mu            sync.Mutex
	replies       []Reply
	requests      []Request
	imageRequests []Request
	images        map[string][]byte
}

// New starts a server that is shut down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{images: make(map[string][]byte)}

	r := gin.New()
	api := r.Group("/v1/guardrails")
	api.POST("", s.handle(SafeVerdict("guardrails-test")))
	api.POST("/input", s.handle(SafeVerdict("guardrails-test")))
	api.POST("/output", s.handle(SafeVerdict("guardrails-test")))
	api.GET("/health", s.handle(gin.H{"status": "healthy"}))
	api.GET("/models", s.handle(gin.H{
		"object": "list",
		"data": []gin.H{
			{"id": "Xiangxin-Guardrails-Text", "object": "model"},
			{"id": "Xiangxin-Guardrails-VL", "object": "model"},
		},
	}))
	r.GET("/images/:name", s.serveImage)

	s.srv = httptest.NewServer(r)
	s.URL = s.srv.URL + "/v1"
	s.ImageURL = s.srv.URL + "/images/"
	t.Cleanup(s.srv.Close)
	return s
}

// Enqueue scripts the next replies.
func (s *Server) Enqueue(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

// AddImage serves data at ImageURL + name.
func (s *Server) AddImage(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = data
}

// Requests returns the API requests received so far, image downloads excluded.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// ImageRequests returns the image downloads received so far.
func (s *Server) ImageRequests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.imageRequests...)
}

// Count returns how many API requests were received.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Close shuts the server down. Later requests fail at the connection level.
func (s *Server) Close() {
	s.srv.Close()
}

func (s *Server) handle(fallback any) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.GetRawData()
		var body map[string]any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Header: c.Request.Header.Clone(),
			Body:   body,
		})
		reply := Reply{Body: fallback}
		if len(s.replies) > 0 {
			reply = s.replies[0]
			s.replies = s.replies[1:]
		}
		s.mu.Unlock()

		if reply.Delay > 0 {
			select {
			case <-time.After(reply.Delay):
			case <-c.Request.Context().Done():
				return
			}
		}

		status := reply.Status
		if status == 0 {
			status = http.StatusOK
		}
		switch b := reply.Body.(type) {
		case string:
			c.Data(status, "application/json", []byte(b))
		case []byte:
			c.Data(status, "application/json", b)
		case nil:
			c.Status(status)
		default:
			c.JSON(status, b)
		}
	}
}

func (s *Server) serveImage(c *gin.Context) {
	s.mu.Lock()
	s.imageRequests = append(s.imageRequests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Header: c.Request.Header.Clone(),
	})
	data, ok := s.images[c.Param("name")]
	s.mu.Unlock()

	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

// SafeVerdict returns a verdict body with no risk.
func SafeVerdict(id string) gin.H {
	return VerdictBody(id, "none", "pass", nil)
}

// VerdictBody returns a verdict body. Categories are reported under compliance; pass a non-nil
// answer to include a suggested answer.
func VerdictBody(id, level, action string, answer *string, categories ...string) gin.H {
	if categories == nil {
		categories = []string{}
	}
	return gin.H{
		"id": id,
		"result": gin.H{
			"compliance": gin.H{"risk_level": level, "categories": categories},
			"security":   gin.H{"risk_level": "none", "categories": []string{}},
			"data_leak":  gin.H{"risk_level": "none", "categories": []string{}},
		},
		"overall_risk_level": level,
		"suggested_action":   action,
		"suggested_answer":   answer,
		"confidence_score":   0.97,
	}
}
