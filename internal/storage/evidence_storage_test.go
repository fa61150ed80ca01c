package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfHeader = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

func TestEvidenceStorage_SaveAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewEvidenceStorage(root, 1)
	require.NoError(t, err)
	ctx := context.Background()
	disputeID := uuid.New()

	stored, err := s.Save(ctx, disputeID, "../../акт выполненных работ.pdf", bytes.NewReader(pdfHeader))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", stored.ContentType)
	assert.Equal(t, int64(len(pdfHeader)), stored.Size)
	assert.Equal(t, disputeID.String(), filepath.Dir(stored.Path))
	assert.NotContains(t, stored.Path, "..")

	_, err = os.Stat(filepath.Join(root, stored.Path))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, stored.Path))
	_, err = os.Stat(filepath.Join(root, stored.Path))
	assert.True(t, os.IsNotExist(err))
}

func TestEvidenceStorage_Rejects(t *testing.T) {
	s, err := NewEvidenceStorage(t.TempDir(), 1)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Save(ctx, uuid.New(), "empty.pdf", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = s.Save(ctx, uuid.New(), "script.sh", bytes.NewReader([]byte("#!/bin/sh\nrm -rf /\n")))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := append(append([]byte{}, pdfHeader...), make([]byte, 1024*1024)...)
	_, err = s.Save(ctx, uuid.New(), "big.pdf", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}
