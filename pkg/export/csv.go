package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// CSVExporter flattens annotations into one row per (span, concept) pair.
type CSVExporter struct{}

func (e *CSVExporter) Format() string      { return "csv" }
func (e *CSVExporter) ContentType() string { return "text/csv" }

func (e *CSVExporter) Export(job *model.Job) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"span_start", "span_end", "span_text",
		"concept_text", "folio_iri", "folio_label",
		"branch", "branch_color", "confidence", "source",
		"hierarchy_path", "definition",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, ann := range job.Result.Annotations {
		for _, c := range ann.Concepts {
			branch := ""
			if len(c.Branches) > 0 {
				branch = c.Branches[0]
			}
			row := []string{
				strconv.Itoa(ann.Span.Start),
				strconv.Itoa(ann.Span.End),
				ann.Span.Text,
				c.ConceptText,
				c.FolioIRI,
				c.FolioLabel,
				branch,
				c.BranchColor,
				fmt.Sprintf("%.4f", c.Confidence),
				c.Source,
				strings.Join(c.HierarchyPath, " > "),
				c.FolioDefinition,
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
