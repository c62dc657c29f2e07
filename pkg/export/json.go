package export

import (
	"encoding/json"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// JSONExporter renders the full job result as one indented JSON document.
type JSONExporter struct{}

func (e *JSONExporter) Format() string      { return "json" }
func (e *JSONExporter) ContentType() string { return "application/json" }

type jsonDocument struct {
	Format   model.DocumentFormat `json:"format,omitempty"`
	Filename string               `json:"filename,omitempty"`
}

type jsonAnnotation struct {
	Span     model.Span           `json:"span"`
	Concepts []model.ConceptMatch `json:"concepts"`
}

type jsonStatistics struct {
	TotalAnnotations int `json:"total_annotations"`
	UniqueConcepts   int `json:"unique_concepts"`
	TotalIndividuals int `json:"total_individuals"`
	LegalCitations   int `json:"legal_citations"`
	NamedEntities    int `json:"named_entities"`
	TotalProperties  int `json:"total_properties"`
	UniqueProperties int `json:"unique_properties"`
}

type jsonExport struct {
	JobID       string                      `json:"job_id"`
	Status      model.JobStatus             `json:"status"`
	Document    jsonDocument                `json:"document"`
	Metadata    model.Metadata              `json:"metadata"`
	Annotations []jsonAnnotation            `json:"annotations"`
	Individuals []*model.Individual         `json:"individuals"`
	Properties  []*model.PropertyAnnotation `json:"properties"`
	Statistics  jsonStatistics              `json:"statistics"`
}

func (e *JSONExporter) Export(job *model.Job) ([]byte, error) {
	out := jsonExport{
		JobID:       job.ID,
		Status:      job.Status,
		Metadata:    job.Result.Metadata,
		Annotations: make([]jsonAnnotation, 0, len(job.Result.Annotations)),
		Individuals: job.Result.Individuals,
		Properties:  job.Result.Properties,
	}
	if job.Input != nil {
		out.Document = jsonDocument{Format: job.Input.Format, Filename: job.Input.Filename}
	}

	uniqueConcepts := make(map[string]bool)
	for _, ann := range job.Result.Annotations {
		out.Annotations = append(out.Annotations, jsonAnnotation{Span: ann.Span, Concepts: ann.Concepts})
		for _, c := range ann.Concepts {
			if c.FolioIRI != "" {
				uniqueConcepts[c.FolioIRI] = true
			}
		}
	}

	citations, entities := 0, 0
	for _, ind := range job.Result.Individuals {
		switch ind.IndividualType {
		case model.IndividualLegalCitation:
			citations++
		case model.IndividualNamedEntity:
			entities++
		}
	}
	uniqueProps := make(map[string]bool)
	for _, prop := range job.Result.Properties {
		if prop.FolioIRI != "" {
			uniqueProps[prop.FolioIRI] = true
		}
	}

	out.Statistics = jsonStatistics{
		TotalAnnotations: len(job.Result.Annotations),
		UniqueConcepts:   len(uniqueConcepts),
		TotalIndividuals: len(job.Result.Individuals),
		LegalCitations:   citations,
		NamedEntities:    entities,
		TotalProperties:  len(job.Result.Properties),
		UniqueProperties: len(uniqueProps),
	}

	return json.MarshalIndent(out, "", "  ")
}
