package folio

// Branch display names follow the FOLIO taxonomy top level.
var branchDisplayNames = map[string]string{
	"AREA_OF_LAW":             "Area of Law",
	"ACTOR_PLAYER":            "Actor / Player",
	"ASSET_TYPE":              "Asset Type",
	"COMMUNICATION_MODALITY":  "Communication Modality",
	"CURRENCY":                "Currency",
	"DATA_FORMAT":             "Data Format",
	"DOCUMENT_ARTIFACT":       "Document / Artifact",
	"ENGAGEMENT_TERMS":        "Engagement Terms",
	"EVENT":                   "Event",
	"FORUMS_VENUES":           "Forums and Venues",
	"GOVERNMENTAL_BODY":       "Governmental Body",
	"INDUSTRY":                "Industry",
	"LANGUAGE":                "Language",
	"LEGAL_AUTHORITIES":       "Legal Authorities",
	"LEGAL_ENTITY":            "Legal Entity",
	"LOCATION":                "Location",
	"MATTER_NARRATIVE":        "Matter Narrative",
	"OBJECTIVES":              "Objectives",
	"SERVICE":                 "Service",
	"STANDARDS_COMPATIBILITY": "Standards Compatibility",
	"STATUS":                  "Status",
	"SYSTEM_IDENTIFIERS":      "System Identifiers",
}

// ExcludedBranches are taxonomy branches that never yield useful document
// annotations (internal bookkeeping, enumerations).
var ExcludedBranches = map[string]bool{
	"System Identifiers":      true,
	"Language":                true,
	"Currency":                true,
	"Data Format":             true,
	"Standards Compatibility": true,
}

var branchColors = map[string]string{
	"Area of Law":            "#1f77b4",
	"Actor / Player":         "#ff7f0e",
	"Asset Type":             "#2ca02c",
	"Communication Modality": "#17becf",
	"Document / Artifact":    "#d62728",
	"Engagement Terms":       "#9467bd",
	"Event":                  "#8c564b",
	"Forums and Venues":      "#e377c2",
	"Governmental Body":      "#7f7f7f",
	"Industry":               "#bcbd22",
	"Legal Authorities":      "#aec7e8",
	"Legal Entity":           "#ffbb78",
	"Location":               "#98df8a",
	"Matter Narrative":       "#ff9896",
	"Objectives":             "#c5b0d5",
	"Service":                "#c49c94",
	"Status":                 "#f7b6d2",
}

// BranchDisplayName maps a taxonomy key to its display name. Unknown keys
// pass through unchanged so new branches degrade gracefully.
func BranchDisplayName(key string) string {
	if name, ok := branchDisplayNames[key]; ok {
		return name
	}
	return key
}

// BranchColor returns the UI color for a branch display name.
func BranchColor(branch string) string {
	return branchColors[branch]
}
