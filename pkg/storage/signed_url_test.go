package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("doc-1", "doc-1/auditor/arl-abc.pdf")
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	docID, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "doc-1", docID)
	require.Equal(t, "doc-1/auditor/arl-abc.pdf", relPath)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("doc-1", "doc-1/auditor/arl-abc.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "x")
	require.Error(t, err)

	other := NewSignedURLSigner("different", time.Minute)
	_, _, _, err = other.Parse(token)
	require.Error(t, err)
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", -time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("doc-1", "doc-1/auditor/arl-abc.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
}

func TestDocumentStoreAttachmentAndAccessLog(t *testing.T) {
	store, err := NewDocumentStore(t.TempDir())
	require.NoError(t, err)

	rel, err := store.SaveAttachment("doc-1", "payment_resolution", "resolucion.PDF", strings.NewReader("contents"))
	require.NoError(t, err)
	require.Contains(t, rel, "doc-1/auditor/payment_resolution-")
	require.Contains(t, rel, ".pdf")

	file, err := store.Open(rel)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, store.AppendAccessLine("doc-1", "auditor-1 CLAIM"))
	require.NoError(t, store.AppendAccessLine("doc-1", "auditor-1 DECIDE APPROVED"))

	log, err := store.Open("doc-1/access.log")
	require.NoError(t, err)
	require.NoError(t, log.Close())
}
