// Package output persists pipeline results into timestamped session directories.
package output

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/podcast-agent/internal/logging"
	"github.com/jonathan/podcast-agent/internal/schemas"
	"github.com/jonathan/podcast-agent/internal/types"
)

// File names inside a session directory
const (
	ImageBase        = "podcast_image"
	ScriptFile       = "podcast_script.txt"
	ScriptPartFormat = "podcast_script_part_%d.txt"
	VideoBase        = "podcast_video"
	ManifestFile     = "manifest.json"
)

// PartSeparator joins script parts in the combined script file
const PartSeparator = "\n\n---PART---\n\n"

// sessionTimeLayout is the timestamp prefix of a session directory name
const sessionTimeLayout = "20060102_150405"

// Files lists the artifacts written for a session, relative to its directory
type Files struct {
	Image       string   `json:"image,omitempty"`
	Script      string   `json:"script,omitempty"`
	ScriptParts []string `json:"script_parts,omitempty"`
	Video       string   `json:"video,omitempty"`
}

// ManifestStage is the on-disk form of a stage outcome
type ManifestStage struct {
	Stage      types.StageName   `json:"stage"`
	Status     types.StageStatus `json:"status"`
	DurationMS int64             `json:"duration_ms"`
	Reason     string            `json:"reason,omitempty"`
}

// Manifest describes a session directory
type Manifest struct {
	RunID      string                   `json:"run_id"`
	Topic      string                   `json:"topic"`
	PartCount  int                      `json:"part_count"`
	UseSearch  bool                     `json:"use_search"`
	Files      Files                    `json:"files"`
	Stages     []ManifestStage          `json:"stages"`
	Errors     []types.StageError       `json:"errors"`
	Warnings   []types.Warning          `json:"warnings"`
	Grounding  *types.GroundingMetadata `json:"grounding"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}

// Session is a written session directory
type Session struct {
	Name     string
	Dir      string
	Manifest Manifest
}

// Path returns the absolute path of a file inside the session
func (s *Session) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Writer writes sessions under Root
type Writer struct {
	Root   string
	Now    func() time.Time
	NewID  func() string
	Logger *slog.Logger
}

// NewWriter returns a Writer rooted at root
func NewWriter(root string, logger *slog.Logger) *Writer {
	return &Writer{Root: root, Logger: logger}
}

// SessionName builds a directory name of the form YYYYMMDD_HHMMSS_<8 hex>
func SessionName(t time.Time, id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return t.Format(sessionTimeLayout) + "_" + id
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Writer) newID() string {
	if w.NewID != nil {
		return w.NewID()
	}
	return uuid.NewString()
}

// WriteSession writes every artifact present in result plus a manifest.
// Missing artifacts are simply absent from the directory.
func (w *Writer) WriteSession(result *types.PipelineResult) (*Session, error) {
	if result == nil {
		return nil, fmt.Errorf("cannot write a nil result")
	}
	logger := logging.WithComponent(logging.OrDefault(w.Logger), "output")

	name := SessionName(w.now(), w.newID())
	dir := filepath.Join(w.Root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	session := &Session{Name: name, Dir: dir}
	files := Files{}

	if result.Image != nil && len(result.Image.Bytes) > 0 {
		files.Image = ImageBase + extensionFor(result.Image.MIMEType, ".png")
		if err := os.WriteFile(session.Path(files.Image), result.Image.Bytes, 0644); err != nil {
			return nil, fmt.Errorf("failed to write image: %w", err)
		}
	}

	if len(result.Script) > 0 {
		files.Script = ScriptFile
		combined := types.JoinSegments(result.Script, PartSeparator)
		if err := os.WriteFile(session.Path(files.Script), []byte(combined), 0644); err != nil {
			return nil, fmt.Errorf("failed to write script: %w", err)
		}
		for i, seg := range result.Script {
			part := fmt.Sprintf(ScriptPartFormat, i+1)
			if err := os.WriteFile(session.Path(part), []byte(seg.Text), 0644); err != nil {
				return nil, fmt.Errorf("failed to write script part %d: %w", i+1, err)
			}
			files.ScriptParts = append(files.ScriptParts, part)
		}
	}

	if result.Video != nil && len(result.Video.Bytes) > 0 {
		files.Video = VideoBase + extensionFor(result.Video.MIMEType, ".mp4")
		if err := os.WriteFile(session.Path(files.Video), result.Video.Bytes, 0644); err != nil {
			return nil, fmt.Errorf("failed to write video: %w", err)
		}
	}

	session.Manifest = NewManifest(result, files)
	data, err := json.MarshalIndent(session.Manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := schemas.ValidateManifest(data); err != nil {
		return nil, fmt.Errorf("manifest does not validate against schema: %w", err)
	}
	if err := os.WriteFile(session.Path(ManifestFile), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	logger.Info("session written", "dir", dir, "run_id", result.RunID)
	return session, nil
}

// NewManifest converts a result into its manifest form
func NewManifest(result *types.PipelineResult, files Files) Manifest {
	m := Manifest{
		RunID:      result.RunID,
		Topic:      result.Topic,
		PartCount:  result.PartCount,
		UseSearch:  result.UseSearch,
		Files:      files,
		Stages:     make([]ManifestStage, 0, len(result.Stages)),
		Errors:     result.Errors,
		Warnings:   result.Warnings,
		Grounding:  result.Grounding,
		StartedAt:  result.StartedAt.UTC(),
		FinishedAt: result.FinishedAt.UTC(),
	}
	if m.Errors == nil {
		m.Errors = []types.StageError{}
	}
	if m.Warnings == nil {
		m.Warnings = []types.Warning{}
	}
	for _, o := range result.Stages {
		m.Stages = append(m.Stages, ManifestStage{
			Stage:      o.Stage,
			Status:     o.Status,
			DurationMS: o.Duration.Milliseconds(),
			Reason:     o.Reason,
		})
	}
	return m
}

// ReadManifest loads and validates the manifest of a session directory
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	if err := schemas.ValidateManifestFile(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

func extensionFor(mimeType, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	default:
		return fallback
	}
}
