package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"regwatch/internal/aggregator"
	"regwatch/internal/logger"
	"regwatch/internal/metrics"
	"regwatch/internal/models"
	"regwatch/internal/ratelimit"
	"regwatch/internal/sanitize"

	"github.com/sirupsen/logrus"
)

// Cache directives for the aggregation endpoint: intermediaries may
// reuse the result for 30 minutes and serve stale content for another
// hour while revalidating.
const newsCacheControl = "public, s-maxage=1800, stale-while-revalidate=3600"

// maxBodySize bounds relayed and submitted request bodies.
const maxBodySize = 64 << 10

// NewsProvider produces the aggregated item list. Implemented by
// aggregator.Aggregator; stubbed in tests.
type NewsProvider interface {
	Aggregate(ctx context.Context) []models.NewsItem
}

// FeedbackStore archives accepted user submissions. May be nil when no
// database is configured.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, clientIP, message string) error
}

// NewsArchive serves previously archived items when live aggregation
// comes back empty (all sources down). May be nil.
type NewsArchive interface {
	RecentNews(ctx context.Context, limit int) ([]models.NewsItem, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	news              NewsProvider
	feedback          FeedbackStore
	archive           NewsArchive
	analyticsUpstream string

	// Client performs upstream analytics calls; exported for tests.
	Client *http.Client

	newsLimiter      *ratelimit.Limiter
	analyticsLimiter *ratelimit.Limiter
	feedbackLimiter  *ratelimit.Limiter
}

// NewServer creates a Server. feedback and archive may be nil;
// analyticsUpstream may be empty, in which case the relay answers
// without forwarding.
func NewServer(news NewsProvider, feedback FeedbackStore, archive NewsArchive, analyticsUpstream string) *Server {
	return &Server{
		news:              news,
		feedback:          feedback,
		archive:           archive,
		analyticsUpstream: analyticsUpstream,
		Client:            &http.Client{Timeout: 10 * time.Second},
		newsLimiter:       ratelimit.New(ratelimit.Moderate),
		analyticsLimiter:  ratelimit.New(ratelimit.Permissive),
		feedbackLimiter:   ratelimit.New(ratelimit.Strict),
	}
}

// GetNews runs the aggregation to completion and returns the bounded,
// sorted item list behind cache headers. Individual sources never throw;
// the deferred recover here is the single orchestration-level catch-all.
func (s *Server) GetNews(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.WithField("panic", rec).Error("Aggregation endpoint failure")
			writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
	}()

	if decision := s.newsLimiter.Allow(ratelimit.ClientIP(r)); !decision.Allowed {
		s.writeRateLimited(w, r, decision)
		return
	}

	items := s.news.Aggregate(r.Context())
	if len(items) == 0 && s.archive != nil {
		archived, err := s.archive.RecentNews(r.Context(), aggregator.MaxItems)
		if err != nil {
			logger.Log.Errorf("Failed to read news archive: %v", err)
		} else {
			items = archived
		}
	}
	if items == nil {
		items = []models.NewsItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", newsCacheControl)
	if err := json.NewEncoder(w).Encode(items); err != nil {
		logger.Log.Errorf("Failed to encode news response: %v", err)
	}
}

// RelayAnalytics forwards the request body and the validated client IP
// to the analytics upstream. Upstream failures resolve to an empty 200:
// analytics must never break the calling page.
func (s *Server) RelayAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := ratelimit.ClientIP(r)
	if decision := s.analyticsLimiter.Allow(clientIP); !decision.Allowed {
		s.writeRateLimited(w, r, decision)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeEmptyOK(w)
		return
	}

	if s.analyticsUpstream == "" {
		writeEmptyOK(w)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.analyticsUpstream, bytes.NewReader(body))
	if err != nil {
		logger.Log.Errorf("Failed to build analytics request: %v", err)
		writeEmptyOK(w)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	// Only the validated address is forwarded, never the raw header.
	req.Header.Set("X-Forwarded-For", clientIP)

	resp, err := s.Client.Do(req)
	if err != nil {
		logger.Log.Warnf("Analytics upstream unreachable: %v", err)
		writeEmptyOK(w)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

type feedbackRequest struct {
	Message string `json:"message"`
}

// SubmitFeedback accepts a user submission, sanitizes it and archives it
// when a store is configured.
func (s *Server) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := ratelimit.ClientIP(r)
	if decision := s.feedbackLimiter.Allow(clientIP); !decision.Allowed {
		s.writeRateLimited(w, r, decision)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	message := sanitize.Clean(req.Message)
	if message == "" {
		writeJSONError(w, "Message must not be empty", http.StatusBadRequest)
		return
	}

	if s.feedback != nil {
		if err := s.feedback.SaveFeedback(r.Context(), clientIP, message); err != nil {
			logger.Log.Errorf("Failed to archive feedback: %v", err)
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"client_ip": clientIP,
		"length":    len(message),
	}).Info("Feedback accepted")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

// HealthCheck reports liveness.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status": "healthy"}`))
}

// writeRateLimited answers a denied request with 429 and the
// machine-readable headers well-behaved clients use to back off.
func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request, d ratelimit.Decision) {
	metrics.RateLimitDenialsTotal.WithLabelValues(r.URL.Path).Inc()

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(d.RetryAfter.Seconds())))
	writeJSONError(w, "Too many requests", http.StatusTooManyRequests)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeEmptyOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{}`))
}
