package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// exportJob builds a completed job with two annotations sharing one concept
// IRI, a citation and an entity, and two properties sharing one IRI.
func exportJob() *model.Job {
	job := model.NewJob(&model.DocumentInput{
		Content: "ignored", Format: model.FormatPlainText, Filename: "complaint.txt",
	})
	job.Status = model.StatusCompleted

	text := "The breach of contract claim concerns a breach of contract theory."
	job.Result.CanonicalText = &model.CanonicalText{FullText: text}

	breach := model.ConceptMatch{
		ConceptText:     "breach of contract",
		FolioIRI:        "https://folio.openlegalstandard.org/R7L3xlqLLvIHv8NiBvBzJWg",
		FolioLabel:      "Breach of Contract",
		FolioDefinition: "Failure to perform a contractual obligation.",
		Branches:        []string{"Area of Law"},
		BranchColor:     "#3F51B5",
		HierarchyPath:   []string{"Area of Law", "Contract Law", "Breach of Contract"},
		Confidence:      0.9525,
		Source:          model.SourceReconciled,
	}
	job.Result.Annotations = append(job.Result.Annotations,
		model.NewAnnotation(model.Span{Start: 4, End: 22, Text: "breach of contract"}, breach),
		model.NewAnnotation(model.Span{Start: 40, End: 58, Text: "breach of contract"}, breach),
	)

	job.Result.Individuals = append(job.Result.Individuals,
		model.NewIndividual("550 U.S. 544", "550 U.S. 544", model.IndividualLegalCitation,
			model.Span{Start: 0, End: 3, Text: "The"}),
		model.NewIndividual("Acme Corp", "Acme Corp", model.IndividualNamedEntity,
			model.Span{Start: 23, End: 28, Text: "claim"}),
	)

	propIRI := "https://folio.openlegalstandard.org/RPfK8wC2qLmNxVzTbJsHdYe"
	job.Result.Properties = append(job.Result.Properties,
		&model.PropertyAnnotation{ID: "p1", PropertyText: "breach", FolioIRI: propIRI,
			Span: model.Span{Start: 4, End: 10, Text: "breach"}, Confidence: 0.85},
		&model.PropertyAnnotation{ID: "p2", PropertyText: "breach", FolioIRI: propIRI,
			Span: model.Span{Start: 40, End: 46, Text: "breach"}, Confidence: 0.85},
	)
	return job
}

func TestRegistryFormats(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"csv", "html", "json", "jsonl"}, r.Formats())

	e, err := r.Get("json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", e.ContentType())

	_, err = r.Get("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown export format")
	assert.Contains(t, err.Error(), "csv")
}

func TestJSONExportStatistics(t *testing.T) {
	out, err := (&JSONExporter{}).Export(exportJob())
	require.NoError(t, err)

	var decoded struct {
		JobID    string `json:"job_id"`
		Status   string `json:"status"`
		Document struct {
			Format   string `json:"format"`
			Filename string `json:"filename"`
		} `json:"document"`
		Annotations []struct {
			Span     model.Span           `json:"span"`
			Concepts []model.ConceptMatch `json:"concepts"`
		} `json:"annotations"`
		Statistics struct {
			TotalAnnotations int `json:"total_annotations"`
			UniqueConcepts   int `json:"unique_concepts"`
			TotalIndividuals int `json:"total_individuals"`
			LegalCitations   int `json:"legal_citations"`
			NamedEntities    int `json:"named_entities"`
			TotalProperties  int `json:"total_properties"`
			UniqueProperties int `json:"unique_properties"`
		} `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))

	assert.Equal(t, "completed", decoded.Status)
	assert.Equal(t, "complaint.txt", decoded.Document.Filename)
	assert.Equal(t, "plain_text", decoded.Document.Format)

	require.Len(t, decoded.Annotations, 2)
	assert.Equal(t, "Breach of Contract", decoded.Annotations[0].Concepts[0].FolioLabel)

	st := decoded.Statistics
	assert.Equal(t, 2, st.TotalAnnotations)
	assert.Equal(t, 1, st.UniqueConcepts, "both spans resolve to the same IRI")
	assert.Equal(t, 2, st.TotalIndividuals)
	assert.Equal(t, 1, st.LegalCitations)
	assert.Equal(t, 1, st.NamedEntities)
	assert.Equal(t, 2, st.TotalProperties)
	assert.Equal(t, 1, st.UniqueProperties)
}

func TestJSONLExportOneLinePerAnnotation(t *testing.T) {
	out, err := (&JSONLExporter{}).Export(exportJob())
	require.NoError(t, err)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var record struct {
		SpanStart int `json:"span_start"`
		SpanEnd   int `json:"span_end"`
		Concepts  []struct {
			FolioLabel string  `json:"folio_label"`
			Branch     string  `json:"branch"`
			Confidence float64 `json:"confidence"`
		} `json:"concepts"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, 4, record.SpanStart)
	assert.Equal(t, 22, record.SpanEnd)
	require.Len(t, record.Concepts, 1)
	assert.Equal(t, "Breach of Contract", record.Concepts[0].FolioLabel)
	assert.Equal(t, "Area of Law", record.Concepts[0].Branch)
}

func TestCSVExportRowPerConcept(t *testing.T) {
	out, err := (&CSVExporter{}).Export(exportJob())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per span-concept pair")

	assert.Equal(t, []string{
		"span_start", "span_end", "span_text",
		"concept_text", "folio_iri", "folio_label",
		"branch", "branch_color", "confidence", "source",
		"hierarchy_path", "definition",
	}, rows[0])

	row := rows[1]
	assert.Equal(t, "4", row[0])
	assert.Equal(t, "22", row[1])
	assert.Equal(t, "breach of contract", row[2])
	assert.Equal(t, "Area of Law", row[6])
	assert.Equal(t, "0.9525", row[8])
	assert.Equal(t, "Area of Law > Contract Law > Breach of Contract", row[10])
}

func TestHTMLExportWrapsSpansAndEscapes(t *testing.T) {
	job := model.NewJob(nil)
	job.Result.CanonicalText = &model.CanonicalText{
		FullText: "Breach of contract & naïve <claims>.",
	}
	job.Result.Annotations = append(job.Result.Annotations,
		model.NewAnnotation(model.Span{Start: 0, End: 18, Text: "Breach of contract"},
			model.ConceptMatch{
				ConceptText: "breach of contract",
				FolioIRI:    "https://folio.openlegalstandard.org/R7L3xlqLLvIHv8NiBvBzJWg",
				FolioLabel:  "Breach of Contract",
				Branches:    []string{"Area of Law"},
				Confidence:  0.95,
			}))

	out, err := (&HTMLExporter{}).Export(job)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `class="lx-annotation"`)
	assert.Contains(t, page, `data-iri="https://folio.openlegalstandard.org/R7L3xlqLLvIHv8NiBvBzJWg"`)
	assert.Contains(t, page, `data-branch="Area of Law"`)
	// High confidence picks the green border.
	assert.Contains(t, page, "border-bottom-color: #228B22")
	assert.Contains(t, page, ">Breach of contract</a></span>")

	assert.Contains(t, page, "&amp; naïve &lt;claims&gt;.")
	assert.NotContains(t, page, "<claims>")
}

func TestHTMLExportIndividualAndProperty(t *testing.T) {
	job := model.NewJob(nil)
	job.Result.CanonicalText = &model.CanonicalText{FullText: "Acme Corp violates the lease."}
	job.Result.Individuals = append(job.Result.Individuals,
		model.NewIndividual("Acme Corp", "Acme Corp", model.IndividualNamedEntity,
			model.Span{Start: 0, End: 9, Text: "Acme Corp"}))
	job.Result.Properties = append(job.Result.Properties,
		&model.PropertyAnnotation{ID: "p1", PropertyText: "violates",
			Span: model.Span{Start: 10, End: 18, Text: "violates"}, Confidence: 0.75})

	out, err := (&HTMLExporter{}).Export(job)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `class="lx-individual"`)
	assert.Contains(t, page, `data-individual-type="named_entity"`)
	assert.Contains(t, page, `class="lx-property"`)
	assert.Contains(t, page, ">violates</span>")
}

func TestHTMLExportSkipsInvalidSpans(t *testing.T) {
	job := model.NewJob(nil)
	job.Result.CanonicalText = &model.CanonicalText{FullText: "short"}
	job.Result.Annotations = append(job.Result.Annotations,
		model.NewAnnotation(model.Span{Start: 2, End: 99, Text: "out of range"},
			model.ConceptMatch{ConceptText: "x"}))

	out, err := (&HTMLExporter{}).Export(job)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "lx-annotation")
}

func TestHTMLExportNoContent(t *testing.T) {
	out, err := (&HTMLExporter{}).Export(model.NewJob(nil))
	require.NoError(t, err)
	assert.Contains(t, string(out), "No content")
}

func TestExportersIgnoreScratchState(t *testing.T) {
	job := exportJob()
	job.Result.Metadata.EnsureScratch().RawText = "transient"

	out, err := (&JSONExporter{}).Export(job)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "transient")
}
