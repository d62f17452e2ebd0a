package editor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpeg(size int) SourceImage {
	data := make([]byte, size)
	copy(data, []byte{0xff, 0xd8, 0xff, 0xe0})
	return SourceImage{Data: data, MIMEType: "image/jpeg", Name: "oficina.jpg"}
}

func succeedWith(data []byte) EditorFunc {
	return func(ctx context.Context, req EditRequest) (*EditResult, error) {
		return &EditResult{Data: data, MIMEType: ResultMIMEType}, nil
	}
}

func failWith(err error) EditorFunc {
	return func(ctx context.Context, req EditRequest) (*EditResult, error) {
		return nil, err
	}
}

func TestUpload_RejectsFilesOverLimit(t *testing.T) {
	s := NewSession("s1", succeedWith([]byte("x")))

	err := s.Upload(jpeg(5*1024*1024 + 1))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, KindFileTooLarge, Kind(err))
	assert.False(t, s.Snapshot().HasSource)

	require.NoError(t, s.Upload(jpeg(1024)))
	err = s.Upload(jpeg(6 * 1024 * 1024))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	snap := s.Snapshot()
	assert.True(t, snap.HasSource)
	assert.Equal(t, 1024, snap.SourceSize)
	assert.Equal(t, StatusIdle, snap.Status)
}

func TestUpload_ExactlyAtLimitAccepted(t *testing.T) {
	s := NewSession("s1", succeedWith([]byte("x")))
	require.NoError(t, s.Upload(jpeg(5*1024*1024)))
}

func TestUpload_RejectsEmptyImage(t *testing.T) {
	s := NewSession("s1", succeedWith([]byte("x")))
	assert.ErrorIs(t, s.Upload(SourceImage{MIMEType: "image/png"}), ErrEmptyImage)
}

func TestUpload_ClearsPreviousResultAndError(t *testing.T) {
	s := NewSession("s1", succeedWith([]byte("result")))
	require.NoError(t, s.Upload(jpeg(10)))
	_, err := s.Generate(context.Background(), "hat")
	require.NoError(t, err)
	s.SetComparing(true)

	require.NoError(t, s.Upload(jpeg(20)))
	snap := s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.False(t, snap.HasResult)
	assert.Empty(t, snap.Result)
	assert.False(t, snap.Comparing)
	assert.Equal(t, 20, snap.SourceSize)
}

func TestGeneratePreset_Scenario(t *testing.T) {
	var seen EditRequest
	var during Snapshot
	var s *Session
	s = NewSession("s1", EditorFunc(func(ctx context.Context, req EditRequest) (*EditResult, error) {
		seen = req
		during = s.Snapshot()
		return &EditResult{Data: []byte("edited"), MIMEType: ResultMIMEType}, nil
	}))

	require.NoError(t, s.Upload(jpeg(2*1000*1000)))
	assert.Equal(t, StatusIdle, s.Snapshot().Status)

	snap, err := s.GeneratePreset(context.Background(), "navidad-gorro")
	require.NoError(t, err)

	gorro, _ := FindPreset("navidad-gorro")
	assert.Equal(t, StatusProcessing, during.Status)
	assert.Equal(t, gorro.Instruction, seen.Instruction)
	assert.Equal(t, "image/jpeg", seen.MIMEType)
	assert.Len(t, seen.Image, 2*1000*1000)

	assert.Equal(t, StatusSuccess, snap.Status)
	assert.True(t, strings.HasPrefix(snap.Result, "data:image/png;base64,"))
	assert.Equal(t, DisplayResult, snap.Displayed)
	assert.Empty(t, snap.Error)
}

func TestGenerate_BlankInstructionIsNoop(t *testing.T) {
	called := false
	s := NewSession("s1", EditorFunc(func(ctx context.Context, req EditRequest) (*EditResult, error) {
		called = true
		return &EditResult{Data: []byte("x"), MIMEType: ResultMIMEType}, nil
	}))
	require.NoError(t, s.Upload(jpeg(10)))
	before := s.Snapshot()

	for _, blank := range []string{"", "   ", "\n\t"} {
		_, err := s.Generate(context.Background(), blank)
		assert.ErrorIs(t, err, ErrBlankInstruction)
	}
	assert.False(t, called)
	assert.Equal(t, before, s.Snapshot())
}

func TestGenerate_RequiresSource(t *testing.T) {
	s := NewSession("s1", succeedWith([]byte("x")))
	snap, err := s.Generate(context.Background(), "hat")
	assert.ErrorIs(t, err, ErrNoSource)
	assert.Equal(t, StatusIdle, snap.Status)
}

func TestGenerate_UnknownPreset(t *testing.T) {
	s := NewSession("s1", succeedWith([]byte("x")))
	require.NoError(t, s.Upload(jpeg(10)))
	_, err := s.GeneratePreset(context.Background(), "halloween")
	assert.ErrorIs(t, err, ErrUnknownPreset)
	assert.Equal(t, StatusIdle, s.Snapshot().Status)
}

func TestGenerate_BlockedWhileProcessing(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := NewSession("s1", EditorFunc(func(ctx context.Context, req EditRequest) (*EditResult, error) {
		close(started)
		<-release
		return &EditResult{Data: []byte("x"), MIMEType: ResultMIMEType}, nil
	}))
	require.NoError(t, s.Upload(jpeg(10)))

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), "hat")
		done <- err
	}()
	<-started

	_, err := s.Generate(context.Background(), "other")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.Upload(jpeg(20)), ErrBusy)
	assert.Equal(t, StatusProcessing, s.Snapshot().Status)
	assert.Equal(t, "hat", s.Snapshot().Instruction)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusSuccess, s.Snapshot().Status)
}

func TestGenerate_TransportErrorKeepsSource(t *testing.T) {
	s := NewSession("s1", failWith(&RemoteError{Err: errors.New("dial tcp: i/o timeout")}))
	require.NoError(t, s.Upload(jpeg(10)))

	snap, err := s.Generate(context.Background(), "hat")
	assert.Error(t, err)
	assert.Equal(t, StatusError, snap.Status)
	assert.NotEmpty(t, snap.Error)
	assert.Equal(t, KindNetworkOrRemoteFailure, snap.ErrorKind)
	assert.True(t, snap.HasSource)
	assert.Equal(t, 10, snap.SourceSize)
}

func TestGenerate_EmptyErrorMessageFallsBack(t *testing.T) {
	s := NewSession("s1", failWith(&RemoteError{}))
	require.NoError(t, s.Upload(jpeg(10)))

	snap, _ := s.Generate(context.Background(), "hat")
	assert.Equal(t, FallbackMessage, snap.Error)
}

func TestGenerate_RetryFromErrorAndSuccess(t *testing.T) {
	fail := true
	s := NewSession("s1", EditorFunc(func(ctx context.Context, req EditRequest) (*EditResult, error) {
		if fail {
			return nil, &RefusalError{Text: "no"}
		}
		return &EditResult{Data: []byte(req.Instruction), MIMEType: ResultMIMEType}, nil
	}))
	require.NoError(t, s.Upload(jpeg(10)))

	snap, _ := s.Generate(context.Background(), "first")
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, KindRefusalOrTextOnly, snap.ErrorKind)

	fail = false
	snap, err := s.Generate(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Empty(t, snap.Error)

	snap, err = s.Generate(context.Background(), "third")
	require.NoError(t, err)
	res, _, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, []byte("third"), res.Data)
	assert.Equal(t, StatusSuccess, snap.Status)
}

func TestReset_FromAnyStateReturnsToIdle(t *testing.T) {
	idle := func() *Session { return NewSession("s1", succeedWith([]byte("x"))) }
	withSource := func() *Session {
		s := idle()
		require.NoError(t, s.Upload(jpeg(10)))
		return s
	}
	success := func() *Session {
		s := withSource()
		_, err := s.Generate(context.Background(), "hat")
		require.NoError(t, err)
		s.SetComparing(true)
		return s
	}
	failed := func() *Session {
		s := NewSession("s1", failWith(errors.New("boom")))
		require.NoError(t, s.Upload(jpeg(10)))
		_, _ = s.Generate(context.Background(), "hat")
		return s
	}

	for name, build := range map[string]func() *Session{
		"idle": idle, "idle with source": withSource, "success": success, "error": failed,
	} {
		t.Run(name, func(t *testing.T) {
			s := build()
			for i := 0; i < 2; i++ {
				s.Reset()
				snap := s.Snapshot()
				assert.Equal(t, StatusIdle, snap.Status)
				assert.False(t, snap.HasSource)
				assert.False(t, snap.HasResult)
				assert.Empty(t, snap.Result)
				assert.Empty(t, snap.Error)
				assert.Empty(t, snap.ErrorKind)
				assert.Empty(t, snap.Instruction)
				assert.False(t, snap.Comparing)
				assert.Equal(t, DisplayNone, snap.Displayed)
			}
		})
	}
}

func TestReset_DiscardsInFlightEdit(t *testing.T) {
	started := make(chan struct{})
	s := NewSession("s1", EditorFunc(func(ctx context.Context, req EditRequest) (*EditResult, error) {
		close(started)
		<-ctx.Done()
		return &EditResult{Data: []byte("late"), MIMEType: ResultMIMEType}, nil
	}))
	require.NoError(t, s.Upload(jpeg(10)))

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), "hat")
		done <- err
	}()
	<-started
	s.Reset()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDiscarded)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight edit was not cancelled by reset")
	}

	snap := s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.False(t, snap.HasResult)
	assert.False(t, snap.HasSource)
}

func TestSetComparing_DerivesDisplayedImage(t *testing.T) {
	s := NewSession("s1", succeedWith([]byte("result")))
	_, _, shown := s.DisplayedImage()
	assert.Equal(t, DisplayNone, shown)

	require.NoError(t, s.Upload(jpeg(10)))
	assert.False(t, s.SetComparing(true))
	_, mimeType, shown := s.DisplayedImage()
	assert.Equal(t, DisplayOriginal, shown)
	assert.Equal(t, "image/jpeg", mimeType)

	_, err := s.Generate(context.Background(), "hat")
	require.NoError(t, err)
	data, mimeType, shown := s.DisplayedImage()
	assert.Equal(t, DisplayResult, shown)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("result"), data)

	assert.True(t, s.SetComparing(true))
	_, _, shown = s.DisplayedImage()
	assert.Equal(t, DisplayOriginal, shown)
	assert.True(t, s.Snapshot().Comparing)

	assert.False(t, s.SetComparing(false))
	_, _, shown = s.DisplayedImage()
	assert.Equal(t, DisplayResult, shown)
}

func TestResult_TimestampedFileName(t *testing.T) {
	now := time.UnixMilli(1734567890123)
	s := NewSession("s1", succeedWith([]byte("result")), WithClock(func() time.Time { return now }))

	_, _, err := s.Result()
	assert.ErrorIs(t, err, ErrNoResult)

	require.NoError(t, s.Upload(jpeg(10)))
	_, err = s.Generate(context.Background(), "hat")
	require.NoError(t, err)

	res, name, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, "navidad-ai-1734567890123.png", name)
	assert.Equal(t, ResultMIMEType, res.MIMEType)
}

func TestWithMaxUploadBytes(t *testing.T) {
	s := NewSession("s1", succeedWith([]byte("x")), WithMaxUploadBytes(16))
	assert.ErrorIs(t, s.Upload(jpeg(17)), ErrFileTooLarge)
	assert.NoError(t, s.Upload(jpeg(16)))
}
