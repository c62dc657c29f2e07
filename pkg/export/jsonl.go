package export

import (
	"bytes"
	"encoding/json"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// JSONLExporter emits one line per annotation, suitable for bulk loading.
type JSONLExporter struct{}

func (e *JSONLExporter) Format() string      { return "jsonl" }
func (e *JSONLExporter) ContentType() string { return "application/jsonl" }

type jsonlConcept struct {
	ConceptText string  `json:"concept_text"`
	FolioIRI    string  `json:"folio_iri"`
	FolioLabel  string  `json:"folio_label"`
	Branch      string  `json:"branch"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source"`
}

type jsonlRecord struct {
	SpanStart int            `json:"span_start"`
	SpanEnd   int            `json:"span_end"`
	SpanText  string         `json:"span_text"`
	Concepts  []jsonlConcept `json:"concepts"`
}

func (e *JSONLExporter) Export(job *model.Job) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ann := range job.Result.Annotations {
		record := jsonlRecord{
			SpanStart: ann.Span.Start,
			SpanEnd:   ann.Span.End,
			SpanText:  ann.Span.Text,
			Concepts:  make([]jsonlConcept, 0, len(ann.Concepts)),
		}
		for _, c := range ann.Concepts {
			branch := ""
			if len(c.Branches) > 0 {
				branch = c.Branches[0]
			}
			record.Concepts = append(record.Concepts, jsonlConcept{
				ConceptText: c.ConceptText,
				FolioIRI:    c.FolioIRI,
				FolioLabel:  c.FolioLabel,
				Branch:      branch,
				Confidence:  c.Confidence,
				Source:      c.Source,
			})
		}
		if err := enc.Encode(record); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
