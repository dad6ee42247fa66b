package clipboard_test

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	sysclip "github.com/atotto/clipboard"
	"github.com/fwojciec/jsaudit/clipboard"
	"github.com/fwojciec/jsaudit/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSC52_Copy(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := clipboard.NewOSC52(&buf).Copy("eval(location.hash)")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\x1b]52;c;"+base64.StdEncoding.EncodeToString([]byte("eval(location.hash)")))
}

func TestSystem_Copy_FallsBackWhenUnsupported(t *testing.T) {
	t.Parallel()

	if !sysclip.Unsupported {
		t.Skip("system clipboard available, fallback not exercised")
	}

	var got string
	fallback := &mock.Clipboard{CopyFn: func(content string) error {
		got = content
		return nil
	}}

	err := clipboard.NewSystem(fallback).Copy("report text")

	require.NoError(t, err)
	assert.Equal(t, "report text", got)
}

func TestSystem_Copy_ReportsErrorWithoutFallback(t *testing.T) {
	t.Parallel()

	if !sysclip.Unsupported {
		t.Skip("system clipboard available")
	}

	err := clipboard.NewSystem(nil).Copy("report text")

	assert.Error(t, err)
}

func TestSystem_Copy_PropagatesFallbackError(t *testing.T) {
	t.Parallel()

	if !sysclip.Unsupported {
		t.Skip("system clipboard available")
	}

	cause := errors.New("terminal closed")
	fallback := &mock.Clipboard{CopyFn: func(string) error { return cause }}

	err := clipboard.NewSystem(fallback).Copy("x")

	assert.ErrorIs(t, err, cause)
}
