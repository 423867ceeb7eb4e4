package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"salescoach/internal/domain"
)

// ErrNotFound is returned when no report has the requested id.
var ErrNotFound = errors.New("report not found")

const (
	filePrefix = "report_"
	convPrefix = "conversation_"
	fileExt    = ".json"
	idLayout   = "20060102_150405"
	dateLayout = "2006-01-02 15:04:05"
)

// Report is one saved evaluation together with the transcript it scored.
type Report struct {
	ID                 string        `json:"id"`
	Timestamp          time.Time     `json:"timestamp"`
	Persona            string        `json:"persona"`
	Content            string        `json:"report_content"`
	Transcript         []domain.Turn `json:"conversation_history"`
	ConversationLength int           `json:"conversation_length"`
}

// Date formats the report time for listings.
func (r Report) Date() string { return r.Timestamp.Format(dateLayout) }

// Summary is the listing view of a report.
type Summary struct {
	ID                 string    `json:"id"`
	Timestamp          time.Time `json:"timestamp"`
	Persona            string    `json:"persona"`
	ConversationLength int       `json:"conversation_length"`
}

// Conversation is a raw transcript saved without evaluation.
type Conversation struct {
	Timestamp time.Time     `json:"timestamp"`
	Persona   string        `json:"persona"`
	Messages  []domain.Turn `json:"messages"`
}

// Store keeps reports as one JSON file each under a directory.
type Store struct {
	dir string
	now func() time.Time
	mu  sync.RWMutex
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create reports dir %s", dir)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileExt)
}

func (s *Store) newID(ts time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return ts.Format(idLayout) + "_" + suffix
}

// Save writes a new report and returns it with its id.
func (s *Store) Save(persona, content string, transcript []domain.Turn) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	r := Report{
		ID:                 s.newID(ts),
		Timestamp:          ts,
		Persona:            persona,
		Content:            content,
		Transcript:         append([]domain.Turn(nil), transcript...),
		ConversationLength: len(transcript),
	}
	if err := writeJSON(s.path(r.ID), r); err != nil {
		return Report{}, errors.Wrap(err, "save report")
	}
	log.Info().Str("id", r.ID).Str("persona", persona).Int("turns", r.ConversationLength).Msg("report saved")
	return r, nil
}

// SaveConversation writes the transcript as conversation_<id>.json next to the
// reports and returns the file path. List does not include these files.
func (s *Store) SaveConversation(persona string, transcript []domain.Turn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	c := Conversation{
		Timestamp: ts,
		Persona:   persona,
		Messages:  append([]domain.Turn{}, transcript...),
	}
	target := filepath.Join(s.dir, convPrefix+s.newID(ts)+fileExt)
	if err := writeJSON(target, c); err != nil {
		return "", errors.Wrap(err, "save conversation")
	}
	log.Info().Str("path", target).Int("turns", len(transcript)).Msg("conversation saved")
	return target, nil
}

// writeJSON writes v to a temp file and renames it over target.
func writeJSON(target string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write")
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "commit")
	}
	return nil
}

// Load reads one report.
func (s *Store) Load(id string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(id)
}

func (s *Store) load(id string) (Report, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return Report{}, errors.Wrapf(ErrNotFound, "id %q", id)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Report{}, errors.Wrapf(ErrNotFound, "id %s", id)
		}
		return Report{}, errors.Wrapf(err, "read report %s", id)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, errors.Wrapf(err, "decode report %s", id)
	}
	return r, nil
}

// List returns summaries of all readable reports, newest first.
// Unreadable files are skipped with a warning.
func (s *Store) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "list reports")
	}
	var out []Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
		r, err := s.load(id)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable report")
			continue
		}
		out = append(out, Summary{
			ID:                 r.ID,
			Timestamp:          r.Timestamp,
			Persona:            r.Persona,
			ConversationLength: r.ConversationLength,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Delete removes a report.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || strings.ContainsAny(id, `/\`) {
		return errors.Wrapf(ErrNotFound, "id %q", id)
	}
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNotFound, "id %s", id)
		}
		return errors.Wrapf(err, "delete report %s", id)
	}
	return nil
}

// LoadMany loads the given ids in order, skipping the ones that are missing.
func (s *Store) LoadMany(ids []string) ([]Report, error) {
	out := make([]Report, 0, len(ids))
	for _, id := range ids {
		r, err := s.Load(id)
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("id", id).Msg("report not found, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func roleLabel(r domain.Role) string {
	if r == domain.RoleSalesperson {
		return "销售"
	}
	return "客户"
}

// Markdown renders a report for download.
func Markdown(r Report) string {
	var b strings.Builder
	b.WriteString("# 销售模拟复盘报告\n\n")
	b.WriteString("## 基本信息\n")
	fmt.Fprintf(&b, "- **报告ID**: %s\n", r.ID)
	fmt.Fprintf(&b, "- **生成时间**: %s\n", r.Date())
	fmt.Fprintf(&b, "- **客户类型**: %s\n", r.Persona)
	fmt.Fprintf(&b, "- **对话轮数**: %d\n\n", r.ConversationLength)
	b.WriteString("## 评估报告\n")
	b.WriteString(r.Content)
	b.WriteString("\n\n## 完整对话记录\n")
	for i, t := range r.Transcript {
		fmt.Fprintf(&b, "\n**%d. %s**: %s\n", i+1, roleLabel(t.Role), t.Content)
	}
	return b.String()
}
