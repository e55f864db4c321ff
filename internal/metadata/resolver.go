// Package metadata derives document metadata from folder conventions and
// merges it with extracted values and caller overrides.
package metadata

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/logger"
)

// Rule inspects the folder segments of a path (relative to the
// configured root) and fills metadata fields it can derive. Rules only
// set fields that are still empty, so earlier rules win.
type Rule struct {
	// Name identifies the rule in verbose logs.
	Name string

	// Apply derives fields from the path segments.
	Apply func(segments []string, m *domain.Metadata)
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// ConventionRules returns the default folder-convention rules for the
// clients/<client>/<year>/<project> layout. Unmatched segments leave the
// corresponding field unset rather than guessing.
func ConventionRules() []Rule {
	return []Rule{
		{
			Name: "client-first-segment",
			Apply: func(segments []string, m *domain.Metadata) {
				if m.Client == "" && len(segments) > 1 {
					m.Client = segments[0]
				}
			},
		},
		{
			Name: "year-four-digits",
			Apply: func(segments []string, m *domain.Metadata) {
				if m.Year != "" {
					return
				}
				for i, seg := range segments {
					if !yearPattern.MatchString(seg) {
						continue
					}
					m.Year = seg
					// Project is the folder right after the year.
					if m.Project == "" && i+2 < len(segments) {
						m.Project = segments[i+1]
					}
					return
				}
			},
		},
		{
			Name: "project-second-segment",
			Apply: func(segments []string, m *domain.Metadata) {
				if m.Project == "" && len(segments) > 2 {
					m.Project = segments[1]
				}
			},
		},
	}
}

// Classifier assigns a single category to a document.
type Classifier interface {
	// Classify returns the category for a document, or
	// domain.CategoryUncategorized when nothing matches.
	Classify(ctx context.Context, path, text string) (string, error)
}

// Resolver merges metadata from three sources with fixed precedence:
// caller overrides > folder-derived values > format-native values.
type Resolver struct {
	root       string
	rules      []Rule
	classifier Classifier
}

// NewResolver creates a resolver. root anchors the folder convention;
// paths outside root only receive native and override values. A nil
// classifier leaves Category at Uncategorized unless overridden.
func NewResolver(root string, rules []Rule, classifier Classifier) *Resolver {
	if rules == nil {
		rules = ConventionRules()
	}
	return &Resolver{root: root, rules: rules, classifier: classifier}
}

// Resolve produces the final metadata record for one document.
func (r *Resolver) Resolve(ctx context.Context, path string, native, overrides map[string]string) (domain.Metadata, error) {
	return r.ResolveDocument(ctx, path, "", native, overrides)
}

// ResolveDocument is Resolve with the extracted text available, so
// content-aware classifiers can read it.
func (r *Resolver) ResolveDocument(ctx context.Context, path, text string, native, overrides map[string]string) (domain.Metadata, error) {
	m := domain.Metadata{Fields: map[string]string{}}

	// Native values first; the lowest-precedence source.
	for k, v := range native {
		switch k {
		case "client":
			m.Client = v
		case "year":
			m.Year = v
		case "project":
			m.Project = v
		case "category":
			m.Category = v
		default:
			m.Fields[k] = v
		}
	}

	// Derived values overwrite native ones for fields both provide.
	if segments := r.segments(path); segments != nil {
		derived := domain.Metadata{}
		for _, rule := range r.rules {
			rule.Apply(segments, &derived)
		}
		if derived.Client != "" {
			m.Client = derived.Client
		}
		if derived.Year != "" {
			m.Year = derived.Year
		}
		if derived.Project != "" {
			m.Project = derived.Project
		}
		logger.Debug("derived metadata for %s: client=%q year=%q project=%q",
			path, derived.Client, derived.Year, derived.Project)
	}

	if m.Category == "" && r.classifier != nil {
		category, err := r.classifier.Classify(ctx, path, text)
		if err != nil {
			return domain.Metadata{}, err
		}
		m.Category = category
	}
	if m.Category == "" {
		m.Category = domain.CategoryUncategorized
	}

	// Overrides always win.
	for k, v := range overrides {
		switch k {
		case "client":
			m.Client = v
		case "year":
			m.Year = v
		case "project":
			m.Project = v
		case "category":
			m.Category = v
		default:
			m.Fields[k] = v
		}
	}

	return m, nil
}

// ResolveAll applies one override set to many paths. Each path is
// resolved independently; there is no cross-document state.
func (r *Resolver) ResolveAll(ctx context.Context, paths []string, overrides map[string]string) (map[string]domain.Metadata, error) {
	out := make(map[string]domain.Metadata, len(paths))
	for _, p := range paths {
		m, err := r.Resolve(ctx, p, nil, overrides)
		if err != nil {
			return nil, err
		}
		out[p] = m
	}
	return out, nil
}

// segments returns the path components between the convention root and
// the file name, or nil when the path is outside the root.
func (r *Resolver) segments(path string) []string {
	if r.root == "" {
		return nil
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 0 {
		return nil
	}
	return parts
}
