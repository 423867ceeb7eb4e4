package reports

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salescoach/internal/domain"
)

var transcript = []domain.Turn{
	{Role: domain.RoleSalesperson, Content: "您好，欢迎光临！"},
	{Role: domain.RoleCustomer, Content: "这个多少钱？"},
}

func newTestStore(t *testing.T, times ...time.Time) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "reports"))
	require.NoError(t, err)
	i := 0
	s.now = func() time.Time {
		ts := times[i%len(times)]
		i++
		return ts
	}
	return s
}

func TestSaveLoad(t *testing.T) {
	ts := time.Date(2024, 5, 1, 14, 30, 5, 0, time.Local)
	s := newTestStore(t, ts)

	r, err := s.Save("预算敏感型 (王女士)", "**综合评分**: 7/10", transcript)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^20240501_143005_[0-9a-f]{8}$`), r.ID)
	require.Equal(t, 2, r.ConversationLength)

	_, err = os.Stat(filepath.Join(s.Dir(), "report_"+r.ID+".json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.Dir(), "report_"+r.ID+".json.tmp"))
	require.True(t, os.IsNotExist(err))

	got, err := s.Load(r.ID)
	require.NoError(t, err)
	require.Equal(t, r.ID, got.ID)
	require.True(t, ts.Equal(got.Timestamp))
	require.Equal(t, transcript, got.Transcript)
	require.Equal(t, "2024-05-01 14:30:05", got.Date())
}

func TestSameSecondIDsDiffer(t *testing.T) {
	ts := time.Date(2024, 5, 1, 14, 30, 5, 0, time.Local)
	s := newTestStore(t, ts)
	a, err := s.Save("p", "a", transcript)
	require.NoError(t, err)
	b, err := s.Save("p", "b", transcript)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
}

func TestListNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	s := newTestStore(t, base, base.Add(2*time.Hour), base.Add(time.Hour))
	for _, p := range []string{"first", "third", "second"} {
		_, err := s.Save(p, "x", transcript)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "report_broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "third", list[0].Persona)
	require.Equal(t, "second", list[1].Persona)
	require.Equal(t, "first", list[2].Persona)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, time.Now())
	r, err := s.Save("p", "x", transcript)
	require.NoError(t, err)
	require.NoError(t, s.Delete(r.ID))
	require.ErrorIs(t, s.Delete(r.ID), ErrNotFound)
	_, err = s.Load(r.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Load("../escape")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkdown(t *testing.T) {
	r := Report{
		ID:                 "20240501_143005_abcdef01",
		Timestamp:          time.Date(2024, 5, 1, 14, 30, 5, 0, time.Local),
		Persona:            "犹豫不决型 (张阿姨)",
		Content:            "**综合评分**: 6/10",
		Transcript:         transcript,
		ConversationLength: 2,
	}
	md := Markdown(r)
	require.True(t, strings.HasPrefix(md, "# 销售模拟复盘报告\n"))
	require.Contains(t, md, "- **报告ID**: 20240501_143005_abcdef01\n")
	require.Contains(t, md, "- **生成时间**: 2024-05-01 14:30:05\n")
	require.Contains(t, md, "- **对话轮数**: 2\n")
	require.Contains(t, md, "## 评估报告\n**综合评分**: 6/10")
	require.Contains(t, md, "**1. 销售**: 您好，欢迎光临！\n")
	require.Contains(t, md, "**2. 客户**: 这个多少钱？\n")
}

func TestWriteExcel(t *testing.T) {
	s := newTestStore(t, time.Date(2024, 5, 1, 14, 30, 5, 0, time.Local))
	a, err := s.Save("王女士", "**综合评分**: 7.5/10\n需求挖掘: 8/10", transcript)
	require.NoError(t, err)
	b, err := s.Save("李小姐", "整体不错", transcript)
	require.NoError(t, err)

	loaded, err := s.LoadMany([]string{a.ID, "missing", b.ID})
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, loaded))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"报告ID", "生成时间", "客户类型", "对话轮数", "综合评分", "完整报告"}, rows[0])
	require.Equal(t, a.ID, rows[1][0])
	require.Equal(t, "2", rows[1][3])
	require.Equal(t, "7.5", rows[1][4])
	require.Equal(t, "", rows[2][4])
	require.Equal(t, "整体不错", rows[2][5])
}

func TestSaveConversation(t *testing.T) {
	ts := time.Date(2024, 5, 1, 14, 30, 5, 0, time.Local)
	s := newTestStore(t, ts)

	path, err := s.SaveConversation("预算敏感型 (王女士)", transcript)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`conversation_20240501_143005_[0-9a-f]{8}\.json$`), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var c Conversation
	require.NoError(t, json.Unmarshal(data, &c))
	require.Equal(t, "预算敏感型 (王女士)", c.Persona)
	require.Equal(t, transcript, c.Messages)
	require.True(t, ts.Equal(c.Timestamp))
	require.Contains(t, string(data), `"messages"`)

	list, err := s.List()
	require.NoError(t, err)
	require.Empty(t, list)
}
