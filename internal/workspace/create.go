package workspace

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/logging"
	"github.com/colliery-io/metis/internal/merr"
	"github.com/colliery-io/metis/internal/template"
)

// CreateRequest is the input to Create (spec §4.5 "Creation").
type CreateRequest struct {
	Type            document.Type
	Title           string
	ParentShortCode string
	Backlog         BacklogCategory
	Tags            []string

	// Type-specific.
	RiskLevel           document.RiskLevel
	Stakeholders        []string
	EstimatedComplexity document.Complexity
	DecisionMaker       string

	// Context supplies free-text template variables (summary, decision,
	// consequences, ...) not otherwise derivable from the request.
	Context template.Context

	// CustomTemplate overrides the resolved content template text,
	// bypassing the loader's fallback chain entirely.
	CustomTemplate string
}

// CreateResult reports what Create produced.
type CreateResult struct {
	DocumentID document.DocumentId
	ShortCode  document.ShortCode
	FilePath   document.FilePath
}

// Create renders a new document from its template, allocates a short
// code, writes it to its canonical on-disk path, and imports it into the
// projection (spec §4.5 "Creation").
func (w *Workspace) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("workspace: create: %w: %q", merr.ErrInvalidDocumentType, req.Type)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, &merr.MissingRequiredFieldError{Field: "title"}
	}

	logger := logging.WithOperationContext(w.logger, "", "", "create:"+string(req.Type))
	logger.Info("creating document", "type", req.Type, "title", req.Title)

	parent, err := w.resolveParent(ctx, req.Type, req.ParentShortCode)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "create "+string(req.Type))
	}

	slug, err := document.SlugifyTitle(req.Title)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "slugify title")
	}
	slug = document.DedupeDocumentId(slug, func(candidate string) bool {
		_, err := w.Store.Documents.FindByID(ctx, candidate)
		return err == nil
	})

	shortCode, err := w.Store.Config.GenerateShortCode(ctx, w.Config.Workspace.Prefix, req.Type.Letter())
	if err != nil {
		return nil, merr.WrapWorkspace(err, "generate short code")
	}

	var number uint32
	docID := slug
	pathSlug := slug
	if req.Type == document.TypeADR {
		number = shortCodeSuffix(shortCode)
		docID, err = document.ADRDocumentId(number, req.Title)
		if err != nil {
			return nil, merr.WrapWorkspace(err, "build ADR id")
		}
		pathSlug = docID
	}

	rel, err := canonicalPath(req.Type, parent, pathSlug, req.Backlog)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "resolve canonical path")
	}
	if fsdal.Exists(abs(w.Root, rel)) {
		return nil, &merr.PathConflictError{Destination: string(rel)}
	}

	tmplCtx := w.buildTemplateContext(req, parent, shortCode)

	content, err := w.renderContent(req, tmplCtx)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "render content template")
	}
	exitCriteria, err := w.templates.RenderFor(req.Type, template.KindExitCriteria, tmplCtx)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "render exit criteria template")
	}
	body := document.AppendSection(content, "Exit Criteria", exitCriteria)

	now := time.Now().UTC()
	doc := &document.Document{
		Common: document.Common{
			ShortCode:    document.ShortCode(shortCode),
			ID:           document.DocumentId(docID),
			Title:        req.Title,
			DocumentType: req.Type,
			FilePath:     rel,
			Tags:         buildTags(req.Type, req.Tags),
			CreatedAt:    now,
			UpdatedAt:    now,
			ContentBody:  body,
		},
		RiskLevel:           req.RiskLevel,
		Stakeholders:        req.Stakeholders,
		EstimatedComplexity: req.EstimatedComplexity,
		Number:              number,
		DecisionMaker:       req.DecisionMaker,
	}
	if parent != nil {
		doc.Parent = document.ParentReference{Kind: document.ParentSet, ID: parent.ID}
	} else {
		doc.Parent = document.ParentReference{Kind: document.ParentNone}
	}

	if err := document.Validate(doc); err != nil {
		return nil, err
	}

	out, err := document.Serialize(doc)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "serialize document")
	}
	if err := fsdal.Write(abs(w.Root, rel), out); err != nil {
		return nil, merr.WrapWorkspace(err, "write document")
	}

	if _, err := w.importDocument(ctx, rel); err != nil {
		return nil, merr.WrapWorkspace(err, "import created document")
	}

	logger.Info("created document", "short_code", shortCode, "filepath", rel)
	return &CreateResult{DocumentID: doc.ID, ShortCode: doc.ShortCode, FilePath: rel}, nil
}

func (w *Workspace) renderContent(req CreateRequest, ctx template.Context) (string, error) {
	if req.CustomTemplate != "" {
		return template.Render(req.CustomTemplate, ctx)
	}
	return w.templates.RenderFor(req.Type, template.KindContent, ctx)
}

func (w *Workspace) buildTemplateContext(req CreateRequest, parent *document.Document, shortCode string) template.Context {
	ctx := template.Context{}
	for k, v := range req.Context {
		ctx[k] = v
	}
	ctx["title"] = req.Title
	ctx["short_code"] = shortCode
	if parent != nil {
		ctx["parent_title"] = parent.Title
	}
	if req.RiskLevel != "" {
		ctx["risk_level"] = string(req.RiskLevel)
	}
	if len(req.Stakeholders) > 0 {
		ctx["stakeholders"] = strings.Join(req.Stakeholders, ", ")
	}
	if req.EstimatedComplexity != "" {
		ctx["estimated_complexity"] = string(req.EstimatedComplexity)
	}
	if req.DecisionMaker != "" {
		ctx["decision_maker"] = req.DecisionMaker
	}
	if req.Type == document.TypeADR {
		ctx["number"] = strconv.Itoa(int(shortCodeSuffix(shortCode)))
	}
	return ctx
}

func buildTags(t document.Type, extra []string) []document.Tag {
	tags := make([]document.Tag, 0, len(extra)+1)
	tags = append(tags, document.NewPhaseTag(document.InitialPhase(t)))
	for _, e := range extra {
		tags = append(tags, document.Tag(strings.TrimPrefix(e, "#")))
	}
	return tags
}

// shortCodeSuffix extracts the numeric suffix from a PREFIX-X-NNNN code.
func shortCodeSuffix(code string) uint32 {
	idx := strings.LastIndex(code, "-")
	if idx < 0 {
		return 0
	}
	n, _ := strconv.Atoi(code[idx+1:])
	return uint32(n)
}
