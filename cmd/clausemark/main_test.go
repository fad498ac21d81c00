package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const contractText = "This Agreement is between Alpha Inc and Beta LLC.\n" +
	"Effective Date: March 1, 2024.\n" +
	"This agreement will automatically renew for successive one year terms.\n" +
	"Each party shall indemnify, defend and hold harmless the other party.\n"

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"clausemark", "--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	return out.String(), err
}

func writeContract(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "msa.txt")
	require.NoError(t, os.WriteFile(path, []byte(contractText), 0o644))
	return path
}

func findFlag[T cli.Flag](t *testing.T, cmd *cli.Command, name string) T {
	t.Helper()
	for _, flag := range cmd.Flags {
		if f, ok := flag.(T); ok && flag.Names()[0] == name {
			return f
		}
	}
	require.Failf(t, "flag not found", "%s has no flag %q", cmd.Name, name)
	var zero T
	return zero
}

func TestReindexCommandFlags(t *testing.T) {
	app := newApp()
	cmd := app.Command("reindex")
	require.NotNil(t, cmd)

	t.Run("batch-size has default value of 25", func(t *testing.T) {
		assert.Equal(t, 25, findFlag[*cli.IntFlag](t, cmd, "batch-size").Value)
	})

	t.Run("max-retries has default value of 3", func(t *testing.T) {
		assert.Equal(t, 3, findFlag[*cli.IntFlag](t, cmd, "max-retries").Value)
	})

	t.Run("resume is on by default", func(t *testing.T) {
		assert.True(t, findFlag[*cli.BoolFlag](t, cmd, "resume").Value)
	})
}

func TestReindexCommandValidation(t *testing.T) {
	_, err := runApp(t, "reindex", "--batch-size", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch-size")

	_, err = runApp(t, "reindex", "--max-retries", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max-retries")
}

func TestAuditCommand_File(t *testing.T) {
	out, err := runApp(t, "audit", "--file", writeContract(t))
	require.NoError(t, err)

	var resp struct {
		Findings []struct {
			RuleID string `json:"rule_id"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	var ids []string
	for _, f := range resp.Findings {
		ids = append(ids, f.RuleID)
	}
	assert.Equal(t, []string{"auto_renewal_short_notice", "broad_indemnity"}, ids)
}

func TestExtractCommand_File(t *testing.T) {
	out, err := runApp(t, "extract", "-f", writeContract(t))
	require.NoError(t, err)

	var resp struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Fields, 12)
	assert.JSONEq(t, "true", string(resp.Fields["auto_renewal"]))
	assert.Contains(t, string(resp.Fields["auto_renewal_evidence"]), "automatically renew")
	assert.Contains(t, string(resp.Fields["parties"]), "Alpha Inc")
}

func TestDocumentCommands_RequireSource(t *testing.T) {
	for _, name := range []string{"audit", "extract"} {
		t.Run(name, func(t *testing.T) {
			_, err := runApp(t, name)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "--id or --file")

			_, err = runApp(t, name, "--id", "abc")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid document id")
		})
	}
}

func TestAuditCommand_UnsupportedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contract.docx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := runApp(t, "audit", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestIngestAndAskRequireArguments(t *testing.T) {
	_, err := runApp(t, "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one file")

	_, err = runApp(t, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question is required")
}

func TestAskCommand_TopKLimit(t *testing.T) {
	_, err := runApp(t, "--data", t.TempDir(), "ask", "--top-k", "1000", "governing law")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-k must be at most 100")
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: "info"},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error { return nil },
				}
				require.NoError(t, app.Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, err := runApp(t, "--log-level", "verbose", "audit", "--file", "x.txt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
