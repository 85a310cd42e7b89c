package models

import "fmt"

// Section identifies one of the four fixed artifact categories.
type Section string

const (
	SectionThirdPartySoftware Section = "third_party_software"
	SectionSourceCode         Section = "source_code"
	SectionDatasets           Section = "datasets_user_files"
	SectionModels             Section = "models"
)

// Sections lists the sections in document order.
var Sections = []Section{
	SectionThirdPartySoftware,
	SectionSourceCode,
	SectionDatasets,
	SectionModels,
}

// checklists holds the fixed, ordered check names for each section.
// Position i of every artifact's Checks corresponds to checklists[s][i].
var checklists = map[Section][]string{
	SectionThirdPartySoftware: {
		"Provenance & Source Trust",
		"License Restrictions",
		"Known Vulnerabilities",
		"Export Control Classification",
		"Dual-Use Capability",
		"Maintenance Status",
	},
	SectionSourceCode: {
		"Code Provenance",
		"Embedded Credentials or Secrets",
		"Network / Exfiltration Behaviour",
		"Obfuscated or Binary Components",
		"Consistency with Stated Purpose",
	},
	SectionDatasets: {
		"Data Provenance",
		"Personal or Sensitive Data",
		"Restricted or Controlled Content",
		"Licensing & Usage Terms",
		"Sampling Coverage",
		"Malicious Payloads",
		"Sanctions / Geographic Exposure",
	},
	SectionModels: {
		"Model Provenance",
		"Training Compute Threshold",
		"Intended Use & Capability",
		"Dual-Use / Misuse Potential",
		"Weights Licensing",
		"Export Control Classification",
		"Fine-tuning Data Risk",
		"Deployment & Access Controls",
	},
}

// ParseSection converts a string to a Section, accepting the JSON key or a
// short alias (tps, code, data, model).
func ParseSection(s string) (Section, error) {
	switch s {
	case string(SectionThirdPartySoftware), "tps", "software", "third-party":
		return SectionThirdPartySoftware, nil
	case string(SectionSourceCode), "code", "source":
		return SectionSourceCode, nil
	case string(SectionDatasets), "data", "datasets":
		return SectionDatasets, nil
	case string(SectionModels), "model":
		return SectionModels, nil
	}
	return "", fmt.Errorf("unknown section: %q (use: third_party_software, source_code, datasets_user_files, models)", s)
}

// Title returns the display heading for the section.
func (s Section) Title() string {
	switch s {
	case SectionThirdPartySoftware:
		return "Third-Party Software"
	case SectionSourceCode:
		return "Source Code"
	case SectionDatasets:
		return "Datasets / User Files"
	case SectionModels:
		return "AI Models"
	default:
		return string(s)
	}
}

// Checklist returns a copy of the section's fixed check names.
func (s Section) Checklist() []string {
	names := checklists[s]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// ChecklistSize returns the number of checks every artifact in the section carries.
func (s Section) ChecklistSize() int {
	return len(checklists[s])
}

// NewChecks returns a fresh checklist for the section with every score set
// to ScoreNoRisk and empty notes.
func (s Section) NewChecks() []CheckResult {
	names := checklists[s]
	checks := make([]CheckResult, len(names))
	for i, n := range names {
		checks[i] = CheckResult{Name: n, Score: ScoreNoRisk}
	}
	return checks
}

// SourceCodeDetails is pass-through metadata for the source code section.
type SourceCodeDetails struct {
	RepositoryURL string `json:"repository_url"`
}

// DatasetDetails is pass-through metadata for the datasets section.
type DatasetDetails struct {
	SampleGuideline string   `json:"sample_guideline"`
	UploadedFiles   []string `json:"uploaded_files"`
}

// ModelDetails is pass-through metadata for the models section.
// ExceedsThreshold marks combined training and planned compute above 1e27 FLOPs.
type ModelDetails struct {
	ModelName        string `json:"model_name"`
	TrainingFLOPs    string `json:"training_flops"`
	EstimatedFLOPs   string `json:"estimated_flops"`
	ExceedsThreshold bool   `json:"exceeds_threshold"`
}
