package models

import "fmt"

// Decision is the reviewer's final outcome for a review.
type Decision string

const (
	DecisionApproved               Decision = "Approved"
	DecisionApprovedWithMonitoring Decision = "Approved with Monitoring"
	DecisionEscalated              Decision = "Escalated"
	DecisionRejected               Decision = "Rejected"
)

// Decisions lists the accepted decision literals.
var Decisions = []Decision{
	DecisionApproved,
	DecisionApprovedWithMonitoring,
	DecisionEscalated,
	DecisionRejected,
}

// Valid reports whether d is one of the four accepted literals.
func (d Decision) Valid() bool {
	for _, v := range Decisions {
		if d == v {
			return true
		}
	}
	return false
}

// Metadata identifies the proposal under review and the reviewer.
// Dates are ISO YYYY-MM-DD strings.
type Metadata struct {
	ProposalTitle         string `json:"proposal_title"`
	PrincipalInvestigator string `json:"principal_investigator"`
	ProposalDate          string `json:"proposal_date" validate:"omitempty,datetime=2006-01-02"`
	ReviewerName          string `json:"reviewer_name"`
	ReviewerID            string `json:"reviewer_id"`
	AIMCRDate             string `json:"aimcr_date" validate:"omitempty,datetime=2006-01-02"`
	ProjectID             string `json:"project_id" validate:"required"`
}

// ReviewDocument is the single JSON document persisted for a review, both as
// a draft and as a final submission.
type ReviewDocument struct {
	Metadata           Metadata           `json:"metadata"`
	ThirdPartySoftware []Artifact         `json:"third_party_software" validate:"dive"`
	SourceCode         []Artifact         `json:"source_code" validate:"dive"`
	DatasetsUserFiles  []Artifact         `json:"datasets_user_files" validate:"dive"`
	Models             []Artifact         `json:"models" validate:"dive"`
	Observations       string             `json:"observations"`
	Recommendation     string             `json:"recommendation"`
	FinalDecision      Decision           `json:"final_decision,omitempty" validate:"omitempty,decision"`
	SourceCodeDetails  *SourceCodeDetails `json:"source_code_details,omitempty"`
	DatasetDetails     *DatasetDetails    `json:"dataset_details,omitempty"`
	ModelDetails       *ModelDetails      `json:"model_details,omitempty"`
}

// NewReviewDocument returns an empty document with all sections initialized.
func NewReviewDocument() *ReviewDocument {
	return &ReviewDocument{
		ThirdPartySoftware: []Artifact{},
		SourceCode:         []Artifact{},
		DatasetsUserFiles:  []Artifact{},
		Models:             []Artifact{},
	}
}

// Artifacts returns the artifacts of the given section.
func (d *ReviewDocument) Artifacts(s Section) []Artifact {
	switch s {
	case SectionThirdPartySoftware:
		return d.ThirdPartySoftware
	case SectionSourceCode:
		return d.SourceCode
	case SectionDatasets:
		return d.DatasetsUserFiles
	case SectionModels:
		return d.Models
	default:
		return nil
	}
}

// SetArtifacts replaces the artifacts of the given section.
func (d *ReviewDocument) SetArtifacts(s Section, artifacts []Artifact) error {
	switch s {
	case SectionThirdPartySoftware:
		d.ThirdPartySoftware = artifacts
	case SectionSourceCode:
		d.SourceCode = artifacts
	case SectionDatasets:
		d.DatasetsUserFiles = artifacts
	case SectionModels:
		d.Models = artifacts
	default:
		return fmt.Errorf("unknown section: %q", s)
	}
	return nil
}

// Normalize replaces nil section slices with empty ones so they encode as [].
func (d *ReviewDocument) Normalize() {
	for _, s := range Sections {
		if d.Artifacts(s) == nil {
			_ = d.SetArtifacts(s, []Artifact{})
		}
	}
}

// Clone returns a deep copy of the document.
func (d *ReviewDocument) Clone() *ReviewDocument {
	c := *d
	for _, s := range Sections {
		src := d.Artifacts(s)
		if src == nil {
			continue
		}
		dst := make([]Artifact, len(src))
		for i, a := range src {
			dst[i] = a.Clone()
		}
		_ = c.SetArtifacts(s, dst)
	}
	if d.SourceCodeDetails != nil {
		v := *d.SourceCodeDetails
		c.SourceCodeDetails = &v
	}
	if d.DatasetDetails != nil {
		v := *d.DatasetDetails
		if d.DatasetDetails.UploadedFiles != nil {
			v.UploadedFiles = append([]string{}, d.DatasetDetails.UploadedFiles...)
		}
		c.DatasetDetails = &v
	}
	if d.ModelDetails != nil {
		v := *d.ModelDetails
		c.ModelDetails = &v
	}
	return &c
}
