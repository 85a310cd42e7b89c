package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aimcr/aimcr/internal/models"
)

const (
	DraftsDir      = "drafts"
	SubmissionsDir = "submissions"
	SubmissionFile = "aimcr_data.json"

	draftTimeLayout      = "20060102_150405"
	submissionDateLayout = "02-01-2006"
)

// FileStore keeps drafts and submissions as indented JSON files under root,
// which is normally a git working copy.
type FileStore struct {
	root string

	// Now is the clock used for file names; replaceable in tests.
	Now func() time.Time
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir, Now: time.Now}
}

// Root returns the directory the store writes under.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) draftsDir() string { return filepath.Join(s.root, DraftsDir) }

// safeID makes a project id usable as a single path segment.
func safeID(projectID string) string {
	r := strings.NewReplacer("/", "-", "\\", "-", " ", "-", "..", "-")
	return r.Replace(strings.TrimSpace(projectID))
}

// DraftFileName returns draft_<project_id|unnamed>_<YYYYMMDD_HHMMSS>.json.
// Uniqueness is only as fine as the one-second timestamp.
func DraftFileName(projectID string, t time.Time) string {
	id := safeID(projectID)
	if id == "" {
		id = "unnamed"
	}
	return fmt.Sprintf("draft_%s_%s.json", id, t.Format(draftTimeLayout))
}

// SubmissionFolderName returns AIMCR-<project_id>-<DD-MM-YYYY>.
func SubmissionFolderName(projectID string, t time.Time) string {
	return fmt.Sprintf("AIMCR-%s-%s", safeID(projectID), t.Format(submissionDateLayout))
}

// Encode serializes a document as 2-space indented JSON with empty sections as [].
func Encode(doc *models.ReviewDocument) ([]byte, error) {
	c := doc.Clone()
	c.Normalize()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode review: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a document.
func Decode(data []byte) (*models.ReviewDocument, error) {
	doc := &models.ReviewDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode review: %w", err)
	}
	return doc, nil
}

// ReadDocument loads a document from an arbitrary path.
func ReadDocument(path string) (*models.ReviewDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Handle: path, Err: err}
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, &LoadError{Handle: path, Err: err}
	}
	return doc, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place so readers never see a partial document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return &StorageError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &StorageError{Op: "chmod", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &StorageError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// SaveDraft writes doc under drafts/ and returns the draft handle.
// Two saves for the same project within one second share a file name, and
// the later save replaces the earlier one.
func (s *FileStore) SaveDraft(doc *models.ReviewDocument) (string, error) {
	dir := s.draftsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	data, err := Encode(doc)
	if err != nil {
		return "", err
	}

	name := DraftFileName(doc.Metadata.ProjectID, s.Now())
	if err := writeFileAtomic(filepath.Join(dir, name), data); err != nil {
		return "", err
	}
	return name, nil
}

// DraftPath resolves a handle to a path inside the drafts area. Handles may
// omit the .json suffix but may not contain path separators.
func (s *FileStore) DraftPath(handle string) (string, error) {
	if handle == "" || filepath.Base(handle) != handle || handle == "." || handle == ".." {
		return "", fmt.Errorf("invalid draft name: %q", handle)
	}
	if !strings.HasSuffix(handle, ".json") {
		handle += ".json"
	}
	return filepath.Join(s.draftsDir(), handle), nil
}

// draftHeader is the subset of a draft parsed for listings.
type draftHeader struct {
	Metadata struct {
		ProjectID     string `json:"project_id"`
		ProposalTitle string `json:"proposal_title"`
	} `json:"metadata"`
}

// ListDrafts returns all parseable drafts, most recently modified first.
// Files that cannot be read or parsed are skipped.
func (s *FileStore) ListDrafts() ([]DraftSummary, error) {
	dir := s.draftsDir()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Path: dir, Err: err}
	}

	var drafts []DraftSummary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())

		info, err := e.Info()
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var h draftHeader
		if err := json.Unmarshal(data, &h); err != nil {
			continue
		}

		d := DraftSummary{
			Name:          e.Name(),
			Path:          path,
			ProjectID:     h.Metadata.ProjectID,
			ProposalTitle: h.Metadata.ProposalTitle,
			Modified:      info.ModTime(),
		}
		if d.ProjectID == "" {
			d.ProjectID = "Unknown"
		}
		if d.ProposalTitle == "" {
			d.ProposalTitle = "Untitled"
		}
		drafts = append(drafts, d)
	}

	sort.SliceStable(drafts, func(i, j int) bool {
		if drafts[i].Modified.Equal(drafts[j].Modified) {
			return drafts[i].Name > drafts[j].Name
		}
		return drafts[i].Modified.After(drafts[j].Modified)
	})
	return drafts, nil
}

// LoadDraft returns the draft or nil if it cannot be read or parsed.
// Callers that need the cause use ReadDocument on DraftPath.
func (s *FileStore) LoadDraft(handle string) *models.ReviewDocument {
	path, err := s.DraftPath(handle)
	if err != nil {
		return nil
	}
	doc, err := ReadDocument(path)
	if err != nil {
		return nil
	}
	return doc
}

// DeleteDraft removes a draft file.
func (s *FileStore) DeleteDraft(handle string) error {
	path, err := s.DraftPath(handle)
	if err != nil {
		return &StorageError{Op: "delete", Path: handle, Err: err}
	}
	if err := os.Remove(path); err != nil {
		return &StorageError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// SaveFinal writes doc to submissions/AIMCR-<project_id>-<DD-MM-YYYY>/aimcr_data.json
// and returns the submission folder. Drafts are left untouched.
func (s *FileStore) SaveFinal(doc *models.ReviewDocument) (string, error) {
	if safeID(doc.Metadata.ProjectID) == "" {
		return "", &StorageError{Op: "save", Path: SubmissionsDir, Err: errors.New("project_id is required")}
	}

	folder := filepath.Join(s.root, SubmissionsDir, SubmissionFolderName(doc.Metadata.ProjectID, s.Now()))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", &StorageError{Op: "mkdir", Path: folder, Err: err}
	}

	data, err := Encode(doc)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(filepath.Join(folder, SubmissionFile), data); err != nil {
		return "", err
	}
	return folder, nil
}

// Equal reports whether two documents encode identically.
func Equal(a, b *models.ReviewDocument) bool {
	ea, err := Encode(a)
	if err != nil {
		return false
	}
	eb, err := Encode(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}
