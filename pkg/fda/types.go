// Package fda queries the public regulatory data sources (openFDA and
// ClinicalTrials.gov) used to ground generated content in real approval,
// safety, and trial data.
package fda

import "time"

// DrugLabel is one structured product label (SPL) result.
// openFDA responses carry many more fields; only the ones the pipeline
// consumes are decoded, missing fields are tolerated.
type DrugLabel struct {
	ID                  string     `json:"id,omitempty"`
	IndicationsAndUsage []string   `json:"indications_and_usage,omitempty"`
	Warnings            []string   `json:"warnings,omitempty"`
	AdverseReactions    []string   `json:"adverse_reactions,omitempty"`
	OpenFDA             OpenFDARef `json:"openfda,omitempty"`
}

// OpenFDARef holds the openfda cross-reference block common to label and
// approval results.
type OpenFDARef struct {
	BrandName        []string `json:"brand_name,omitempty"`
	GenericName      []string `json:"generic_name,omitempty"`
	ManufacturerName []string `json:"manufacturer_name,omitempty"`
	PharmClassEPC    []string `json:"pharm_class_epc,omitempty"`
}

// DrugApproval is one Drugs@FDA application result.
type DrugApproval struct {
	ApplicationNumber string            `json:"application_number,omitempty"`
	SponsorName       string            `json:"sponsor_name,omitempty"`
	Products          []ApprovalProduct `json:"products,omitempty"`
}

// ApprovalProduct is one product under a Drugs@FDA application.
type ApprovalProduct struct {
	BrandName          string `json:"brand_name,omitempty"`
	MarketingStatus    string `json:"marketing_status,omitempty"`
	MarketingStartDate string `json:"marketing_start_date,omitempty"`
}

// AdverseEvent is one FAERS report. Reports are deeply nested; the pipeline
// only needs the reaction terms, so everything else is dropped at decode.
type AdverseEvent struct {
	SafetyReportID string `json:"safetyreportid,omitempty"`
	Patient        struct {
		Reactions []struct {
			ReactionMedDRAPT string `json:"reactionmeddrapt,omitempty"`
		} `json:"reaction,omitempty"`
	} `json:"patient,omitempty"`
}

// Recall is one enforcement report result.
type Recall struct {
	RecallNumber       string `json:"recall_number,omitempty"`
	Classification     string `json:"classification,omitempty"`
	ProductDescription string `json:"product_description,omitempty"`
	ReasonForRecall    string `json:"reason_for_recall,omitempty"`
	Status             string `json:"status,omitempty"`
}

// ClinicalTrial is one ClinicalTrials.gov v2 study, flattened from the
// protocolSection nesting into the fields the prompt builder uses.
type ClinicalTrial struct {
	NCTID          string `json:"nct_id,omitempty"`
	Title          string `json:"title,omitempty"`
	Phase          string `json:"phase,omitempty"`
	OverallStatus  string `json:"overall_status,omitempty"`
	Enrollment     int    `json:"enrollment,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	CompletionDate string `json:"completion_date,omitempty"`
	PrimaryOutcome string `json:"primary_outcome,omitempty"`
}

// IsActive reports whether the trial is currently running or enrolling.
func (t *ClinicalTrial) IsActive() bool {
	switch t.OverallStatus {
	case "RECRUITING", "ACTIVE_NOT_RECRUITING", "ENROLLING_BY_INVITATION", "NOT_YET_RECRUITING":
		return true
	default:
		return false
	}
}

// Summary holds the derived regulatory facts handed to the content generator
// and QA reviewer.
type Summary struct {
	HasApprovedNDA    bool   `json:"has_approved_nda"`
	ApprovalDate      string `json:"approval_date,omitempty"`
	ApplicationNumber string `json:"application_number,omitempty"`
	SponsorName       string `json:"sponsor_name,omitempty"`
	ActiveTrials      int    `json:"active_trials"`
	TotalTrials       int    `json:"total_trials"`
	AdverseEventCount int    `json:"adverse_event_count"`
	HasRecalls        bool   `json:"has_recalls"`
}

// Enrichment aggregates all source results for one submission. Partial
// results are expected: a failed source leaves its slice empty.
type Enrichment struct {
	ProductName    string          `json:"product_name"`
	GenericName    string          `json:"generic_name"`
	Indication     string          `json:"indication"`
	DrugLabels     []DrugLabel     `json:"drug_labels"`
	DrugApprovals  []DrugApproval  `json:"drug_approvals"`
	AdverseEvents  []AdverseEvent  `json:"adverse_events"`
	Recalls        []Recall        `json:"recalls"`
	ClinicalTrials []ClinicalTrial `json:"clinical_trials"`
	Summary        Summary         `json:"summary"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Summarize derives the Summary from the raw per-source results.
func (e *Enrichment) Summarize() {
	s := Summary{
		HasApprovedNDA:    len(e.DrugApprovals) > 0,
		TotalTrials:       len(e.ClinicalTrials),
		AdverseEventCount: len(e.AdverseEvents),
		HasRecalls:        len(e.Recalls) > 0,
	}
	if len(e.DrugApprovals) > 0 {
		approval := e.DrugApprovals[0]
		s.ApplicationNumber = approval.ApplicationNumber
		s.SponsorName = approval.SponsorName
		if len(approval.Products) > 0 {
			s.ApprovalDate = approval.Products[0].MarketingStartDate
		}
	}
	for i := range e.ClinicalTrials {
		if e.ClinicalTrials[i].IsActive() {
			s.ActiveTrials++
		}
	}
	e.Summary = s
}
