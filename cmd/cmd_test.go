package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-verify/pkg/testutil"
)

// writeFixtureConfig 生成指向测试模型的配置文件
func writeFixtureConfig(t *testing.T, extra string) string {
	t.Helper()
	modelPath, vocabPath := testutil.WriteAll(t)
	content := "model:\n" +
		"  path: " + modelPath + "\n" +
		"  vocabPath: " + vocabPath + "\n" +
		"  numHeads: 2\n" + extra
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeNoText(t *testing.T) {
	out, err := execute(t, "analyze")
	assert.ErrorIs(t, err, errUsage)
	assert.Equal(t, `{"error":"No tweet text provided"}`+"\n", out)
}

func TestAnalyzeModelNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  path: "+filepath.Join(t.TempDir(), "none.safetensors")+"\n"), 0o644))

	out, err := execute(t, "analyze", "-c", path, "hello")
	assert.Error(t, err)
	assert.Equal(t, `{"error":"`+msgModelNotFound+`"}`+"\n", out)
}

func TestAnalyzeBadConfig(t *testing.T) {
	out, err := execute(t, "analyze", "-c", filepath.Join(t.TempDir(), "missing.yaml"), "hello")
	assert.Error(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Contains(t, result, "error")
}

func TestAnalyzeVerdict(t *testing.T) {
	cfgPath := writeFixtureConfig(t, "")
	text := testutil.SampleTweet

	first, err := execute(t, "analyze", "-c", cfgPath, text)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(first, "\n"))

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(first), &result))
	require.Len(t, result, 2)
	isFake, ok := result["isFakeNews"].(bool)
	require.True(t, ok)
	score, ok := result["confidenceScore"].(float64)
	require.True(t, ok)
	assert.InDelta(t, testutil.SampleTweetScore, score, 1e-6)
	assert.False(t, isFake)

	second, err := execute(t, "analyze", "-c", cfgPath, text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyzeLongInput(t *testing.T) {
	cfgPath := writeFixtureConfig(t, "")
	out, err := execute(t, "analyze", "-c", cfgPath, strings.Repeat("breaking fake news! ", 400))
	require.NoError(t, err)
	assert.Contains(t, out, `"confidenceScore"`)
}

func TestAnalyzeEmptyText(t *testing.T) {
	cfgPath := writeFixtureConfig(t, "")
	out, err := execute(t, "analyze", "-c", cfgPath, "")
	require.NoError(t, err)
	assert.Contains(t, out, `"isFakeNews"`)
}

func TestAnalyzeRecordsHistory(t *testing.T) {
	cfgPath := writeFixtureConfig(t, "history:\n"+
		"  enabled: true\n"+
		"  driver: duckdb\n"+
		"duckdb:\n"+
		"  dbPath: "+filepath.Join(t.TempDir(), "data", "history.duckdb")+"\n")

	_, err := execute(t, "analyze", "-c", cfgPath, "breaking secret news")
	require.NoError(t, err)

	out, err := execute(t, "history", "-c", cfgPath, "-n", "5")
	require.NoError(t, err)
	var result historyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Tweets, 1)
	assert.Equal(t, "breaking secret news", result.Tweets[0].Text)
	assert.NotEmpty(t, result.Tweets[0].ID)
}

func TestHistoryMemoryEmpty(t *testing.T) {
	cfgPath := writeFixtureConfig(t, "history:\n  driver: memory\n")
	out, err := execute(t, "history", "-c", cfgPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tweets":[]}`, out)
}

func decodeVerdict(t *testing.T, out string) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	require.Len(t, result, 2, out)
	require.Contains(t, result, "isFakeNews")
	require.Contains(t, result, "confidenceScore")
	return result
}

func TestAnalyzeTextWithLeadingDash(t *testing.T) {
	cfgPath := writeFixtureConfig(t, "")
	for _, text := range []string{"-BREAKING- moon is cheese", "--- fake news", "-n", "--help"} {
		t.Run(text, func(t *testing.T) {
			out, err := execute(t, "analyze", "-c", cfgPath, text)
			require.NoError(t, err)
			decodeVerdict(t, out)
		})
	}
}

func TestAnalyzeConfigForms(t *testing.T) {
	cfgPath := writeFixtureConfig(t, "")
	for name, args := range map[string][]string{
		"long flag":      {"analyze", "--config", cfgPath, testutil.SampleTweet},
		"equals form":    {"analyze", "--config=" + cfgPath, testutil.SampleTweet},
		"before command": {"-c", cfgPath, "analyze", testutil.SampleTweet},
		"separator":      {"analyze", "-c", cfgPath, "--", testutil.SampleTweet},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := execute(t, args...)
			require.NoError(t, err)
			result := decodeVerdict(t, out)
			assert.InDelta(t, testutil.SampleTweetScore, result["confidenceScore"], 1e-6)
		})
	}
}

func TestSplitAnalyzeArgs(t *testing.T) {
	tests := []struct {
		args       []string
		wantConfig string
		wantRest   []string
	}{
		{[]string{"hello"}, "", []string{"hello"}},
		{[]string{"-c", "a.yaml", "hello", "-c"}, "a.yaml", []string{"hello", "-c"}},
		{[]string{"--config=a.yaml", "-x"}, "a.yaml", []string{"-x"}},
		{[]string{"--", "-c", "a.yaml"}, "", []string{"-c", "a.yaml"}},
		{[]string{"-c"}, "", []string{"-c"}},
		{[]string{"-c", "a.yaml"}, "a.yaml", []string{}},
	}
	for _, tt := range tests {
		config, rest := splitAnalyzeArgs(tt.args)
		assert.Equal(t, tt.wantConfig, config, tt.args)
		assert.Equal(t, tt.wantRest, rest, tt.args)
	}
}

func TestAnalyzeOnlyConfigIsUsage(t *testing.T) {
	cfgPath := writeFixtureConfig(t, "")
	out, err := execute(t, "analyze", "-c", cfgPath)
	assert.ErrorIs(t, err, errUsage)
	assert.Equal(t, `{"error":"No tweet text provided"}`+"\n", out)
}

func TestUnknownFlagPrintsError(t *testing.T) {
	out, err := execute(t, "history", "--bogus")
	require.Error(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Contains(t, result["error"], "bogus")
}

func TestAnalyzeIgnoresEnvironment(t *testing.T) {
	cfgPath := writeFixtureConfig(t, "")
	t.Setenv("MODEL_PATH", filepath.Join(t.TempDir(), "missing.safetensors"))
	t.Setenv("HISTORY_ENABLED", "true")
	t.Setenv("HISTORY_DRIVER", "mongo")

	out, err := execute(t, "analyze", "-c", cfgPath, testutil.SampleTweet)
	require.NoError(t, err)
	result := decodeVerdict(t, out)
	assert.InDelta(t, testutil.SampleTweetScore, result["confidenceScore"], 1e-6)
}
