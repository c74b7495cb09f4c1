package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prevNoColor := color.NoColor
	color.NoColor = true

	var out, errOut bytes.Buffer
	restore := SetOutput(&out, &errOut)
	t.Cleanup(func() {
		restore()
		color.NoColor = prevNoColor
	})
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)

		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "This is a test error")
	})

	t.Run("single suggestion is printed as-is", func(t *testing.T) {
		_, errOut := capture(t)

		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Try this fix")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := capture(t)

		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t)

	context := map[string]string{
		"Repository": "GATE",
		"GraphDB":    "http://localhost:7200",
	}
	err := ErrorWithContext("Upload failed", "Explanation", context, nil)
	require.Equal(t, "Upload failed", err.Error())
	assert.Contains(t, errOut.String(), "  GraphDB: http://localhost:7200\n  Repository: GATE\n")
}

func TestMessages(t *testing.T) {
	out, _ := capture(t)

	Success("uploaded %d nodes\n", 3)
	Success("✓ already prefixed\n")
	Warning("count unknown\n")
	Failure("delete failed\n")
	Step("checking health\n")
	Detail("GATE\n")
	Info("plain %s\n", "info")

	assert.Equal(t,
		"✓ uploaded 3 nodes\n"+
			"✓ already prefixed\n"+
			"⚠️  count unknown\n"+
			"✗ delete failed\n"+
			"→ checking health\n"+
			"    GATE\n"+
			"plain info\n",
		out.String())
}
