// Package trials adapts the ClinicalTrials.gov v2 studies API into the
// same NewsItem shape the RSS fetcher produces, so consumers never need
// to distinguish origin type. It follows the same discipline as the
// fetcher: per-call timeout, https only, failures swallowed into an
// empty result.
package trials

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"regwatch/internal/fetcher"
	"regwatch/internal/logger"
	"regwatch/internal/metrics"
	"regwatch/internal/models"
	"regwatch/internal/sanitize"
)

const (
	// DefaultURL queries recently updated medical-device studies.
	DefaultURL = "https://clinicaltrials.gov/api/v2/studies?query.term=medical+device&sort=LastUpdatePostDate:desc&pageSize=10"

	sourceLabel  = "ClinicalTrials.gov"
	categoryName = "Clinical Trials"
	studyBaseURL = "https://clinicaltrials.gov/study/"

	dateLayout = "2006-01-02"
)

// Adapter fetches registered clinical trials. Client is exported for
// tests, same as fetcher.Fetcher.
type Adapter struct {
	Client *http.Client
	url    string
}

func New(url string) *Adapter {
	if url == "" {
		url = DefaultURL
	}
	return &Adapter{
		Client: &http.Client{},
		url:    url,
	}
}

func (a *Adapter) Label() string {
	return sourceLabel
}

// studiesResponse mirrors the subset of the v2 API payload we consume.
type studiesResponse struct {
	Studies []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			StatusModule struct {
				LastUpdatePostDateStruct struct {
					Date string `json:"date"`
				} `json:"lastUpdatePostDateStruct"`
			} `json:"statusModule"`
			DescriptionModule struct {
				BriefSummary string `json:"briefSummary"`
			} `json:"descriptionModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

// Fetch retrieves the latest studies and normalizes them. Never errors;
// any failure is logged and yields an empty result.
func (a *Adapter) Fetch(ctx context.Context) []models.NewsItem {
	log := logger.Log.WithField("source", sourceLabel)

	if !strings.HasPrefix(a.url, "https://") {
		metrics.SourceFetchesTotal.WithLabelValues(sourceLabel, "blocked_scheme").Inc()
		log.Warn("Blocked trials URL with insecure scheme")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetcher.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(sourceLabel, "request_error").Inc()
		log.Errorf("Failed to build trials request: %v", err)
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(sourceLabel, "request_error").Inc()
		log.Errorf("Failed to fetch trials: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SourceFetchesTotal.WithLabelValues(sourceLabel, "bad_status").Inc()
		log.WithField("status", resp.StatusCode).Error("Trials API returned non-success status")
		return nil
	}

	var payload studiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(sourceLabel, "parse_error").Inc()
		log.Errorf("Failed to decode trials response: %v", err)
		return nil
	}

	now := time.Now()
	items := make([]models.NewsItem, 0, len(payload.Studies))
	for _, study := range payload.Studies {
		ps := study.ProtocolSection

		published := now
		if t, err := time.Parse(dateLayout, ps.StatusModule.LastUpdatePostDateStruct.Date); err == nil {
			published = t
		}

		link := "#"
		if ps.IdentificationModule.NCTID != "" {
			link = studyBaseURL + ps.IdentificationModule.NCTID
		}

		items = append(items, models.NewsItem{
			Title:          sanitize.Clean(ps.IdentificationModule.BriefTitle),
			Link:           link,
			PubDate:        published.UTC().Format(time.RFC3339),
			Source:         sourceLabel,
			ContentSnippet: sanitize.Snippet(ps.DescriptionModule.BriefSummary, 200),
			Category:       categoryName,
			Published:      published,
		})
	}

	metrics.SourceFetchesTotal.WithLabelValues(sourceLabel, "ok").Inc()
	log.WithField("items", len(items)).Debug("Fetched trials")
	return items
}
