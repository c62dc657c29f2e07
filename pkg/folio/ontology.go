package folio

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/logger"
)

// Concept is one OWL class in the ontology arena. Parent and child links are
// IRI strings resolved back through the Ontology to avoid pointer cycles.
type Concept struct {
	IRI               string            `json:"iri"`
	Label             string            `json:"label"`
	PreferredLabel    string            `json:"preferred_label,omitempty"`
	AlternativeLabels []string          `json:"alternative_labels,omitempty"`
	HiddenLabels      []string          `json:"hidden_labels,omitempty"`
	Definition        string            `json:"definition,omitempty"`
	Examples          []string          `json:"examples,omitempty"`
	Notes             []string          `json:"notes,omitempty"`
	SeeAlso           []string          `json:"see_also,omitempty"`
	Translations      map[string]string `json:"translations,omitempty"`
	SubClassOf        []string          `json:"sub_class_of,omitempty"`
	Deprecated        bool              `json:"deprecated,omitempty"`
}

// DisplayLabel returns the preferred label, falling back to the raw label.
func (c *Concept) DisplayLabel() string {
	if c.PreferredLabel != "" {
		return c.PreferredLabel
	}
	return c.Label
}

// Property is one OWL object property (a legal verb/relation).
type Property struct {
	IRI               string   `json:"iri"`
	Label             string   `json:"label"`
	AlternativeLabels []string `json:"alternative_labels,omitempty"`
	Definition        string   `json:"definition,omitempty"`
	Examples          []string `json:"examples,omitempty"`
	DomainIRIs        []string `json:"domain,omitempty"`
	RangeIRIs         []string `json:"range,omitempty"`
	InverseOf         string   `json:"inverse_of,omitempty"`
	SubPropertyOf     []string `json:"sub_property_of,omitempty"`
}

// CleanLabel strips a trailing parenthetical qualifier, e.g. "governs (Verb)".
func (p *Property) CleanLabel() string {
	return cleanLabel(p.Label)
}

// CleanAltLabels returns alternative labels with qualifiers stripped.
func (p *Property) CleanAltLabels() []string {
	out := make([]string, 0, len(p.AlternativeLabels))
	for _, l := range p.AlternativeLabels {
		if cleaned := cleanLabel(l); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

func cleanLabel(label string) string {
	if idx := strings.Index(label, "("); idx > 0 {
		label = label[:idx]
	}
	return strings.TrimSpace(label)
}

// LabelInfo is one entry in the label index: the owning concept plus whether
// the indexed text was its preferred or an alternative label.
type LabelInfo struct {
	Concept      *Concept
	LabelType    string // preferred or alternative
	MatchedLabel string
}

// PropertyLabelInfo is the analogous entry for the property label index.
type PropertyLabelInfo struct {
	Property     *Property
	LabelType    string // preferred or alternative
	MatchedLabel string
}

// Label type tags used by the ruler and the property matcher.
const (
	LabelPreferred   = "preferred"
	LabelAlternative = "alternative"
	LabelLemma       = "lemma"
)

type ontologyFile struct {
	Classes          []*Concept  `json:"classes"`
	ObjectProperties []*Property `json:"object_properties"`
}

// Ontology is the read-only lookup surface over the loaded taxonomy. Built
// once at startup; all methods are safe for concurrent readers.
type Ontology struct {
	classes    []*Concept
	properties []*Property

	byIRI      map[string]*Concept
	byHash     map[string]*Concept
	propByIRI  map[string]*Property
	children   map[string][]string
	branchByIRI map[string]string

	labelIndex    map[string]LabelInfo
	propIndex     map[string]PropertyLabelInfo
	branchConcepts map[string][]*Concept
}

// Load reads the ontology arena from a JSON snapshot on disk.
func Load(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ontology file: %w", err)
	}
	var file ontologyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse ontology file: %w", err)
	}

	o := &Ontology{
		classes:    file.Classes,
		properties: file.ObjectProperties,
		byIRI:      make(map[string]*Concept, len(file.Classes)),
		byHash:     make(map[string]*Concept, len(file.Classes)),
		propByIRI:  make(map[string]*Property, len(file.ObjectProperties)),
		children:   make(map[string][]string),
	}
	for _, c := range file.Classes {
		o.byIRI[c.IRI] = c
		o.byHash[IRIHash(c.IRI)] = c
		for _, parent := range c.SubClassOf {
			o.children[parent] = append(o.children[parent], c.IRI)
		}
	}
	for _, p := range file.ObjectProperties {
		o.propByIRI[p.IRI] = p
	}

	o.buildBranchMap()
	o.buildLabelIndex()
	o.buildPropertyIndex()

	logger.GetLogger().Info("ontology loaded",
		"classes", len(o.classes),
		"properties", len(o.properties),
		"labels", len(o.labelIndex))
	return o, nil
}

// IRIHash extracts the hash portion of a full IRI (its last path segment).
func IRIHash(iri string) string {
	if idx := strings.LastIndexByte(iri, '/'); idx != -1 {
		return iri[idx+1:]
	}
	return iri
}

func isRootIRI(iri string) bool {
	return iri == "" || strings.HasSuffix(iri, "#Thing") || strings.HasSuffix(iri, "owl:Thing")
}

// buildBranchMap assigns every concept to the display name of its top-level
// ancestor. Branch roots are the concepts directly under the ontology root.
func (o *Ontology) buildBranchMap() {
	o.branchByIRI = make(map[string]string, len(o.classes))
	o.branchConcepts = make(map[string][]*Concept)

	var roots []*Concept
	for _, c := range o.classes {
		if len(c.SubClassOf) == 0 {
			roots = append(roots, c)
			continue
		}
		allRoot := true
		for _, p := range c.SubClassOf {
			if !isRootIRI(p) {
				allRoot = false
				break
			}
		}
		if allRoot {
			roots = append(roots, c)
		}
	}

	// BFS down from each branch root; first assignment wins so concepts in
	// a polyhierarchy keep the branch of their nearest-declared root.
	for _, root := range roots {
		name := BranchDisplayName(root.DisplayLabel())
		queue := []string{root.IRI}
		for len(queue) > 0 {
			iri := queue[0]
			queue = queue[1:]
			if _, seen := o.branchByIRI[iri]; seen {
				continue
			}
			o.branchByIRI[iri] = name
			if c, ok := o.byIRI[iri]; ok {
				o.branchConcepts[name] = append(o.branchConcepts[name], c)
			}
			queue = append(queue, o.children[iri]...)
		}
	}
}

func (o *Ontology) buildLabelIndex() {
	o.labelIndex = make(map[string]LabelInfo, len(o.classes)*2)
	for _, c := range o.classes {
		if c.Deprecated {
			continue
		}
		if ExcludedBranches[o.BranchFor(c.IRI)] {
			continue
		}
		if pref := c.DisplayLabel(); pref != "" {
			o.labelIndex[strings.ToLower(pref)] = LabelInfo{
				Concept:      c,
				LabelType:    LabelPreferred,
				MatchedLabel: pref,
			}
		}
		for _, alt := range c.AlternativeLabels {
			if alt == "" {
				continue
			}
			key := strings.ToLower(alt)
			// Preferred entries always win over alt entries.
			if existing, ok := o.labelIndex[key]; ok && existing.LabelType == LabelPreferred {
				continue
			}
			o.labelIndex[key] = LabelInfo{
				Concept:      c,
				LabelType:    LabelAlternative,
				MatchedLabel: alt,
			}
		}
	}
}

func (o *Ontology) buildPropertyIndex() {
	o.propIndex = make(map[string]PropertyLabelInfo, len(o.properties)*2)
	for _, p := range o.properties {
		if label := p.CleanLabel(); label != "" {
			o.propIndex[strings.ToLower(label)] = PropertyLabelInfo{
				Property:     p,
				LabelType:    LabelPreferred,
				MatchedLabel: label,
			}
		}
		for _, alt := range p.CleanAltLabels() {
			key := strings.ToLower(alt)
			if existing, ok := o.propIndex[key]; ok && existing.LabelType == LabelPreferred {
				continue
			}
			o.propIndex[key] = PropertyLabelInfo{
				Property:     p,
				LabelType:    LabelAlternative,
				MatchedLabel: alt,
			}
		}
	}
}

// Concept looks up a class by full IRI.
func (o *Ontology) Concept(iri string) *Concept {
	return o.byIRI[iri]
}

// ConceptByHash looks up a class by the hash segment of its IRI.
func (o *Ontology) ConceptByHash(hash string) *Concept {
	return o.byHash[hash]
}

// Property looks up an object property by full IRI.
func (o *Ontology) Property(iri string) *Property {
	return o.propByIRI[iri]
}

// Classes returns all loaded classes.
func (o *Ontology) Classes() []*Concept { return o.classes }

// Properties returns all loaded object properties.
func (o *Ontology) Properties() []*Property { return o.properties }

// BranchFor resolves the branch display name for a concept, walking up the
// hierarchy when the concept itself carries no assignment.
func (o *Ontology) BranchFor(iri string) string {
	if b, ok := o.branchByIRI[iri]; ok {
		return b
	}
	c := o.byIRI[iri]
	if c == nil {
		return ""
	}
	for _, parent := range c.SubClassOf {
		if b, ok := o.branchByIRI[parent]; ok {
			return b
		}
	}
	return ""
}

// Branches returns the non-excluded branch display names with their concepts.
func (o *Ontology) Branches() map[string][]*Concept {
	out := make(map[string][]*Concept, len(o.branchConcepts))
	for name, concepts := range o.branchConcepts {
		if ExcludedBranches[name] {
			continue
		}
		out[name] = concepts
	}
	return out
}

// BranchNames returns the sorted non-excluded branch display names.
func (o *Ontology) BranchNames() []string {
	names := make([]string, 0, len(o.branchConcepts))
	for name := range o.branchConcepts {
		if !ExcludedBranches[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AllLabels returns the lowercased label index over every class.
func (o *Ontology) AllLabels() map[string]LabelInfo {
	return o.labelIndex
}

// AllPropertyLabels returns the lowercased label index over object properties.
func (o *Ontology) AllPropertyLabels() map[string]PropertyLabelInfo {
	return o.propIndex
}

// ChildrenOf returns the direct subclasses of a concept.
func (o *Ontology) ChildrenOf(iri string) []*Concept {
	iris := o.children[iri]
	out := make([]*Concept, 0, len(iris))
	for _, child := range iris {
		if c, ok := o.byIRI[child]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenCount returns the number of direct subclasses.
func (o *Ontology) ChildrenCount(iri string) int {
	return len(o.children[iri])
}

// HierarchyPath walks the first-parent chain from the concept to its branch
// root, returning labels root-first.
func (o *Ontology) HierarchyPath(iri string) []string {
	var path []string
	current := o.byIRI[iri]
	for depth := 0; current != nil && depth < 16; depth++ {
		path = append(path, current.DisplayLabel())
		if len(current.SubClassOf) == 0 || isRootIRI(current.SubClassOf[0]) {
			break
		}
		current = o.byIRI[current.SubClassOf[0]]
	}
	// Reverse to root-first order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// SearchByLabel gathers candidate concepts whose preferred or alternative
// labels relate to the query by containment or shared content words. Results
// are unranked candidates for the caller to re-score.
func (o *Ontology) SearchByLabel(query string, limit int) []*Concept {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}
	qWords := ContentWords(q)

	var out []*Concept
	seen := make(map[string]bool)
	add := func(c *Concept) bool {
		if seen[c.IRI] {
			return len(out) < limit
		}
		seen[c.IRI] = true
		out = append(out, c)
		return len(out) < limit
	}

	// Exact hit first.
	if info, ok := o.labelIndex[q]; ok {
		if !add(info.Concept) {
			return out
		}
	}
	for key, info := range o.labelIndex {
		if strings.Contains(key, q) || strings.Contains(q, key) {
			if !add(info.Concept) {
				return out
			}
			continue
		}
		if len(qWords) > 0 {
			for w := range ContentWords(key) {
				if _, ok := qWords[w]; ok {
					if !add(info.Concept) {
						return out
					}
					break
				}
			}
		}
	}
	return out
}

// SearchByPrefix returns concepts whose labels start with the prefix.
func (o *Ontology) SearchByPrefix(prefix string, limit int) []*Concept {
	p := strings.ToLower(strings.TrimSpace(prefix))
	if p == "" || limit <= 0 {
		return nil
	}
	var out []*Concept
	seen := make(map[string]bool)
	for key, info := range o.labelIndex {
		if strings.HasPrefix(key, p) && !seen[info.Concept.IRI] {
			seen[info.Concept.IRI] = true
			out = append(out, info.Concept)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// SearchByDefinition returns concepts whose definition contains the query or
// all of its content words.
func (o *Ontology) SearchByDefinition(query string, limit int) []*Concept {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}
	qWords := ContentWords(q)

	var out []*Concept
	for _, c := range o.classes {
		if c.Definition == "" {
			continue
		}
		def := strings.ToLower(c.Definition)
		hit := strings.Contains(def, q)
		if !hit && len(qWords) > 0 {
			hit = true
			for w := range qWords {
				if !strings.Contains(def, w) {
					hit = false
					break
				}
			}
		}
		if hit {
			out = append(out, c)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}
