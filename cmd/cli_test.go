package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/habedi/dcli/db"
	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCmd returns a bare command with captured output and a background context.
func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetContext(context.Background())
	return cmd, out, errOut
}

func TestCreateRootCmd(t *testing.T) {
	rootCmd := createRootCmd()
	assert.Equal(t, "dcli", rootCmd.Use)
	assert.True(t, rootCmd.SilenceErrors)
	assert.True(t, rootCmd.SilenceUsage)

	names := map[string]bool{}
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
		assert.NotEqual(t, "help", sub.Use, "default help command should be replaced")
	}
	for _, want := range []string{"search", "manifest", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestRootCmd_UnknownFlagIsParameterParse(t *testing.T) {
	rootCmd := createRootCmd()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"version", "--bogus"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Equal(t, dclierr.KindParameterParse, dclierr.KindOf(err))
	assert.Contains(t, buf.String(), "unknown flag: --bogus")
}

func TestRootCmd_UnknownSubcommandIsParameterParse(t *testing.T) {
	rootCmd := createRootCmd()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serach", "Guardian#1234"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Equal(t, dclierr.KindParameterParse, dclierr.KindOf(err))
	assert.Contains(t, buf.String(), `unknown command "serach" for "dcli"`)

	out := new(bytes.Buffer)
	assert.Equal(t, 2, reportError(out, err))
	assert.Equal(t, "Error: Could not parse Parameters. (code 7)\n", out.String())
}

func TestRootCmd_NoArgsPrintsHelp(t *testing.T) {
	rootCmd := createRootCmd()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Available Commands:")
	assert.Contains(t, buf.String(), "search")
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{"parameter parse", dclierr.ParameterParse(), 2, "Error: Could not parse Parameters. (code 7)\n"},
		{"invalid parameters", dclierr.InvalidParameters(), 2, "Error: Invalid input parameters. (code 18)\n"},
		{"unavailable", dclierr.APIUnavailable(), 75, "Error: The Destiny API is currently not available. (code 5)\n"},
		{"missing key", dclierr.MissingAPIKey(), 1, "Error: Missing API Key. Set DESTINY_API_KEY environment variable.\n"},
		{"io", dclierr.IO("disk full"), 1, "Error: Error working with file system. disk full\n"},
		{"unclassified", errors.New("boom"), 1, "Error: An unknown error occurred. *errors.errorString : boom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			code := reportError(buf, tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantOut, buf.String())
		})
	}
}

func TestOpenApp_WithDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DCLI_DATA_DIR", dir)
	t.Setenv("DESTINY_API_KEY", "test-key")

	cmd, _, _ := newTestCmd()
	a, err := openApp(cmd, true)
	require.NoError(t, err)
	require.NotNil(t, a.api)
	require.NotNil(t, a.manager)
	assert.Equal(t, filepath.Join(dir, "dcli.db"), db.Path)
	assert.FileExists(t, db.Path)

	a.close()
	assert.Nil(t, db.GetDB())
}

func TestOpenApp_WithoutDatabase(t *testing.T) {
	t.Setenv("DCLI_DATA_DIR", t.TempDir())

	cmd, _, _ := newTestCmd()
	a, err := openApp(cmd, false)
	require.NoError(t, err)
	assert.NotNil(t, a.api)
	assert.Nil(t, a.manager)
	a.close()
}

func TestOpenApp_DataDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	t.Setenv("DCLI_DATA_DIR", file)

	cmd, _, _ := newTestCmd()
	_, err := openApp(cmd, true)
	require.Error(t, err)
	assert.Equal(t, dclierr.KindDirIsFile, dclierr.KindOf(err))
}

func TestOpenApp_InvalidConfig(t *testing.T) {
	t.Setenv("DCLI_DATA_DIR", t.TempDir())
	t.Setenv("DCLI_MAX_ATTEMPTS", "0")

	cmd, _, _ := newTestCmd()
	_, err := openApp(cmd, false)
	assert.Equal(t, dclierr.KindInvalidParameters, dclierr.KindOf(err))
}

// TestExecuteFailure runs Execute in a subprocess with a missing argument and
// checks the exit status and rendered message.
func TestExecuteFailure(t *testing.T) {
	if os.Getenv("TEST_EXECUTE_FAILURE") == "1" {
		os.Args = []string{"dcli", "search"}
		Execute(context.Background())
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestExecuteFailure")
	cmd.Env = append(os.Environ(), "TEST_EXECUTE_FAILURE=1")
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	err := cmd.Run()

	var exitError *exec.ExitError
	require.ErrorAs(t, err, &exitError)
	assert.Equal(t, 2, exitError.ExitCode())
	assert.Contains(t, stderr.String(), "Error: Could not parse Parameters. (code 7)")
}
