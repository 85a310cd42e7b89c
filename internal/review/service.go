package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aimcr/aimcr/internal/git"
	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/store"
	"github.com/aimcr/aimcr/internal/validate"
)

// Config holds sync settings for the review service.
type Config struct {
	SyncEnabled bool
	RepoURL     string
}

// DefaultConfig reads sync settings from viper.
func DefaultConfig() Config {
	return Config{
		SyncEnabled: viper.GetBool("sync.enabled"),
		RepoURL:     viper.GetString("sync.repo_url"),
	}
}

// Result describes a completed local write. SyncWarning is set when the
// write succeeded but pushing it did not.
type Result struct {
	Path        string `json:"path"`
	SyncMessage string `json:"sync_message,omitempty"`
	SyncWarning error  `json:"-"`
}

// Service runs validate, write, record and sync for each review operation.
// A sync failure never fails the operation.
type Service struct {
	docs   store.Documents
	ledger store.Ledger
	syncer git.Syncer
	cfg    Config
	log    *zap.Logger
}

// NewService wires a Service. ledger and syncer may be nil.
func NewService(docs store.Documents, ledger store.Ledger, syncer git.Syncer, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{docs: docs, ledger: ledger, syncer: syncer, cfg: cfg, log: logger}
}

// Documents returns the underlying document store.
func (s *Service) Documents() store.Documents { return s.docs }

// SaveDraft validates doc at draft level and writes it as a new draft.
func (s *Service) SaveDraft(ctx context.Context, doc *models.ReviewDocument) (*Result, error) {
	if err := validate.Document(doc, validate.Draft); err != nil {
		return nil, err
	}

	handle, err := s.docs.SaveDraft(doc)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(store.DraftsDir, handle)
	s.log.Info("draft saved", zap.String("project_id", doc.Metadata.ProjectID), zap.String("path", path))
	s.record(ctx, models.EventDraftSaved, doc.Metadata.ProjectID, path, "")

	res := &Result{Path: handle}
	s.sync(ctx, res, doc.Metadata.ProjectID, fmt.Sprintf("Save draft %s", handle))
	return res, nil
}

// Submit validates doc at final level and writes the submission folder.
func (s *Service) Submit(ctx context.Context, doc *models.ReviewDocument) (*Result, error) {
	if err := validate.Document(doc, validate.Final); err != nil {
		return nil, err
	}

	folder, err := s.docs.SaveFinal(doc)
	if err != nil {
		return nil, err
	}
	s.log.Info("submission saved", zap.String("project_id", doc.Metadata.ProjectID), zap.String("path", folder))
	s.record(ctx, models.EventSubmitted, doc.Metadata.ProjectID, folder, string(doc.FinalDecision))

	res := &Result{Path: folder}
	s.sync(ctx, res, doc.Metadata.ProjectID, fmt.Sprintf("Submit AIMCR %s", doc.Metadata.ProjectID))
	return res, nil
}

// DeleteDraft removes a draft and syncs the deletion.
func (s *Service) DeleteDraft(ctx context.Context, handle string) (*Result, error) {
	name, err := s.ResolveDraft(handle)
	if err != nil {
		return nil, err
	}
	if err := s.docs.DeleteDraft(name); err != nil {
		return nil, err
	}
	s.log.Info("draft deleted", zap.String("draft", name))
	s.record(ctx, models.EventDraftDeleted, "", filepath.Join(store.DraftsDir, name), "")

	res := &Result{Path: name}
	s.sync(ctx, res, "", fmt.Sprintf("Delete draft %s", name))
	return res, nil
}

// Setup clones the review repository into the workspace or pulls it.
func (s *Service) Setup(ctx context.Context) (string, error) {
	if s.syncer == nil || !s.cfg.SyncEnabled {
		return "", &git.SyncError{Op: "setup", Message: "sync is disabled"}
	}
	msg, err := s.syncer.Setup(ctx, s.cfg.RepoURL, s.docs.Root())
	if err != nil {
		s.record(ctx, models.EventSyncFailed, "", s.docs.Root(), err.Error())
		return "", err
	}
	s.record(ctx, models.EventSyncOK, "", s.docs.Root(), msg)
	return msg, nil
}

// ResolveDraft finds a draft by exact name or unique prefix. An exact name
// resolves even when the file does not parse, so corrupt drafts can still be
// loaded for a diagnostic or deleted.
func (s *Service) ResolveDraft(handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", &store.LoadError{Handle: handle, Err: fmt.Errorf("draft name is empty")}
	}

	if path, err := s.docs.DraftPath(handle); err == nil {
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return filepath.Base(path), nil
		}
	}

	drafts, err := s.docs.ListDrafts()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, d := range drafts {
		if strings.HasPrefix(d.Name, handle) {
			matches = append(matches, d.Name)
		}
	}

	switch len(matches) {
	case 0:
		return "", &store.LoadError{Handle: handle, Err: fmt.Errorf("draft not found")}
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous draft %s: matches %d drafts", handle, len(matches))
	}
}

// LoadDraft resolves handle and loads the draft, reporting why it failed.
func (s *Service) LoadDraft(handle string) (string, *models.ReviewDocument, error) {
	name, err := s.ResolveDraft(handle)
	if err != nil {
		return "", nil, err
	}
	path, err := s.docs.DraftPath(name)
	if err != nil {
		return name, nil, &store.LoadError{Handle: name, Err: err}
	}
	doc, err := store.ReadDocument(path)
	if err != nil {
		return name, nil, err
	}
	return name, doc, nil
}

func (s *Service) sync(ctx context.Context, res *Result, projectID, message string) {
	if s.syncer == nil || !s.cfg.SyncEnabled {
		return
	}
	msg, err := s.syncer.AddCommitPush(ctx, s.docs.Root(), message)
	if err != nil {
		s.log.Warn("sync failed", zap.String("project_id", projectID), zap.Error(err))
		s.record(ctx, models.EventSyncFailed, projectID, res.Path, err.Error())
		res.SyncWarning = err
		return
	}
	res.SyncMessage = msg
	s.record(ctx, models.EventSyncOK, projectID, res.Path, msg)
}

func (s *Service) record(ctx context.Context, kind models.EventKind, projectID, path, detail string) {
	if s.ledger == nil {
		return
	}
	e := &models.Event{Kind: kind, ProjectID: projectID, Path: path, Detail: detail}
	if err := s.ledger.Record(ctx, e); err != nil {
		s.log.Warn("ledger record failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}
