package fda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for the enrichment client.
type Config struct {
	OpenFDABaseURL        string // e.g. "https://api.fda.gov"
	ClinicalTrialsBaseURL string // e.g. "https://clinicaltrials.gov/api/v2"
	RequestTimeout        time.Duration
	MaxConcurrent         int // Bounded parallelism across source queries
}

// Client queries the five regulatory sources. All queries are read-only and
// individually fault-tolerant: a failed source is logged and yields an empty
// result rather than aborting the whole enrichment.
type Client struct {
	httpClient    *http.Client
	openFDABase   string
	ctgovBase     string
	maxConcurrent int
	logger        *zap.Logger
}

// NewClient creates a new enrichment client.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 5
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		openFDABase:   cfg.OpenFDABaseURL,
		ctgovBase:     cfg.ClinicalTrialsBaseURL,
		maxConcurrent: maxConcurrent,
		logger:        logger.Named("fda"),
	}
}

// Enrich runs all source queries for one product and returns the aggregated
// enrichment. It never returns an error: total source failure produces a
// valid, all-empty enrichment and the pipeline proceeds with it.
func (c *Client) Enrich(ctx context.Context, productName, genericName, indication string) *Enrichment {
	if genericName == "" {
		genericName = productName
	}

	enrichment := &Enrichment{
		ProductName: productName,
		GenericName: genericName,
		Indication:  indication,
		Timestamp:   time.Now().UTC(),
	}

	// The sources have no ordering dependency between them; fan out with
	// bounded parallelism so a slow source does not serialize the rest.
	queries := []struct {
		name string
		run  func(context.Context)
	}{
		{"drug_labels", func(ctx context.Context) {
			enrichment.DrugLabels = c.queryDrugLabels(ctx, productName, genericName)
		}},
		{"drug_approvals", func(ctx context.Context) {
			enrichment.DrugApprovals = c.queryDrugApprovals(ctx, productName, genericName)
		}},
		{"adverse_events", func(ctx context.Context) {
			enrichment.AdverseEvents = c.queryAdverseEvents(ctx, productName, genericName)
		}},
		{"recalls", func(ctx context.Context) {
			enrichment.Recalls = c.queryRecalls(ctx, productName, genericName)
		}},
		{"clinical_trials", func(ctx context.Context) {
			enrichment.ClinicalTrials = c.queryClinicalTrials(ctx, productName, genericName, indication)
		}},
	}

	sem := make(chan struct{}, c.maxConcurrent)
	var wg sync.WaitGroup
	for _, q := range queries {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			run(ctx)
		}(q.run)
	}
	wg.Wait()

	enrichment.Summarize()

	c.logger.Info("enrichment completed",
		zap.String("product", productName),
		zap.Int("labels", len(enrichment.DrugLabels)),
		zap.Int("approvals", len(enrichment.DrugApprovals)),
		zap.Int("adverse_events", len(enrichment.AdverseEvents)),
		zap.Int("recalls", len(enrichment.Recalls)),
		zap.Int("trials", len(enrichment.ClinicalTrials)))

	return enrichment
}

// openFDAResponse is the envelope all openFDA endpoints share.
type openFDAResponse[T any] struct {
	Results []T `json:"results"`
}

func (c *Client) queryDrugLabels(ctx context.Context, productName, genericName string) []DrugLabel {
	search := fmt.Sprintf(`openfda.brand_name:%q+OR+openfda.generic_name:%q`, productName, genericName)
	return queryOpenFDA[DrugLabel](c, ctx, "/drug/label.json", search, 5, "drug labels")
}

func (c *Client) queryDrugApprovals(ctx context.Context, productName, genericName string) []DrugApproval {
	search := fmt.Sprintf(`openfda.brand_name:%q+OR+openfda.generic_name:%q`, productName, genericName)
	return queryOpenFDA[DrugApproval](c, ctx, "/drug/drugsfda.json", search, 5, "drug approvals")
}

func (c *Client) queryAdverseEvents(ctx context.Context, productName, genericName string) []AdverseEvent {
	search := fmt.Sprintf(`patient.drug.medicinalproduct:%q+OR+patient.drug.medicinalproduct:%q`, productName, genericName)
	return queryOpenFDA[AdverseEvent](c, ctx, "/drug/event.json", search, 10, "adverse events")
}

func (c *Client) queryRecalls(ctx context.Context, productName, genericName string) []Recall {
	search := fmt.Sprintf(`product_description:%q+OR+product_description:%q`, productName, genericName)
	return queryOpenFDA[Recall](c, ctx, "/drug/enforcement.json", search, 5, "recalls")
}

// queryOpenFDA performs one openFDA search. openFDA returns 404 for empty
// result sets, which is treated the same as no results.
func queryOpenFDA[T any](c *Client, ctx context.Context, path, search string, limit int, sourceName string) []T {
	// The search expression uses openFDA's own +OR+ syntax between quoted
	// terms, so only the terms themselves are escaped, not the expression.
	reqURL := fmt.Sprintf("%s%s?search=%s&limit=%d", c.openFDABase, path, url.PathEscape(search), limit)

	body, err := c.get(ctx, reqURL)
	if err != nil {
		c.logger.Warn("source query failed, continuing with empty result",
			zap.String("source", sourceName),
			zap.Error(err))
		return nil
	}

	var resp openFDAResponse[T]
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("source response undecodable, continuing with empty result",
			zap.String("source", sourceName),
			zap.Error(err))
		return nil
	}
	return resp.Results
}

// ctgovStudiesResponse mirrors the slice of the ClinicalTrials.gov v2 study
// shape the pipeline consumes.
type ctgovStudiesResponse struct {
	Studies []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			StatusModule struct {
				OverallStatus   string `json:"overallStatus"`
				StartDateStruct struct {
					Date string `json:"date"`
				} `json:"startDateStruct"`
				CompletionDateStruct struct {
					Date string `json:"date"`
				} `json:"completionDateStruct"`
			} `json:"statusModule"`
			DesignModule struct {
				Phases         []string `json:"phases"`
				EnrollmentInfo struct {
					Count int `json:"count"`
				} `json:"enrollmentInfo"`
			} `json:"designModule"`
			OutcomesModule struct {
				PrimaryOutcomes []struct {
					Measure string `json:"measure"`
				} `json:"primaryOutcomes"`
			} `json:"outcomesModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

func (c *Client) queryClinicalTrials(ctx context.Context, productName, genericName, indication string) []ClinicalTrial {
	params := url.Values{}
	params.Set("query.cond", indication)
	params.Set("query.intr", productName+" OR "+genericName)
	params.Set("pageSize", "10")
	params.Set("format", "json")
	reqURL := fmt.Sprintf("%s/studies?%s", c.ctgovBase, params.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		c.logger.Warn("source query failed, continuing with empty result",
			zap.String("source", "clinical trials"),
			zap.Error(err))
		return nil
	}

	var resp ctgovStudiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("source response undecodable, continuing with empty result",
			zap.String("source", "clinical trials"),
			zap.Error(err))
		return nil
	}

	trials := make([]ClinicalTrial, 0, len(resp.Studies))
	for _, study := range resp.Studies {
		ps := study.ProtocolSection
		trial := ClinicalTrial{
			NCTID:          ps.IdentificationModule.NCTID,
			Title:          ps.IdentificationModule.BriefTitle,
			OverallStatus:  ps.StatusModule.OverallStatus,
			Enrollment:     ps.DesignModule.EnrollmentInfo.Count,
			StartDate:      ps.StatusModule.StartDateStruct.Date,
			CompletionDate: ps.StatusModule.CompletionDateStruct.Date,
		}
		if len(ps.DesignModule.Phases) > 0 {
			trial.Phase = ps.DesignModule.Phases[0]
		}
		if len(ps.OutcomesModule.PrimaryOutcomes) > 0 {
			trial.PrimaryOutcome = ps.OutcomesModule.PrimaryOutcomes[0].Measure
		}
		trials = append(trials, trial)
	}
	return trials
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
