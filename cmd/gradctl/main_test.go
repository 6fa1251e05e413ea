package main

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradverify/internal/credential/models"
	"gradverify/internal/credential/payload"
	"gradverify/internal/credential/signature"
)

func signedRecord(t *testing.T, codec *signature.Codec) (exportedRecord, []byte) {
	t.Helper()
	priv, pub, err := codec.GenerateKeyPair()
	require.NoError(t, err)
	pubPEM, err := codec.ExportPublic(pub)
	require.NoError(t, err)

	rec, err := decodeRecord([]byte(`{"id":"rec_1","data":{"name":"Alice","gpa":3.90},"authority_reference":"ref-token","signature":"x"}`))
	require.NoError(t, err)

	msg, err := payload.Build(rec.Data, models.AuthorityReference(rec.AuthorityReference))
	require.NoError(t, err)
	sig, err := codec.Sign(priv, msg)
	require.NoError(t, err)

	rec.Signature = base64.StdEncoding.EncodeToString(sig)
	return rec, pubPEM
}

func TestVerifyRecord(t *testing.T) {
	codec := signature.New()
	rec, pubPEM := signedRecord(t, codec)

	t.Run("valid record", func(t *testing.T) {
		out, err := verifyRecordAgainst(codec, rec, pubPEM)
		require.NoError(t, err)
		assert.True(t, out.Valid)
		assert.Equal(t, "rec_1", out.RecordID)
		assert.Contains(t, out.Payload, `"gpa":3.9`)
	})

	t.Run("tampered data", func(t *testing.T) {
		tampered := rec
		tampered.Data = models.GraduateData{"name": "Alice", "gpa": json.Number("4.00")}
		out, err := verifyRecordAgainst(codec, tampered, pubPEM)
		require.NoError(t, err)
		assert.False(t, out.Valid)
		assert.Equal(t, "signature_mismatch", out.Reason)
	})

	t.Run("different reference", func(t *testing.T) {
		moved := rec
		moved.AuthorityReference = "other-token"
		out, err := verifyRecordAgainst(codec, moved, pubPEM)
		require.NoError(t, err)
		assert.False(t, out.Valid)
	})

	t.Run("bad signature encoding", func(t *testing.T) {
		broken := rec
		broken.Signature = "%%%"
		_, err := verifyRecordAgainst(codec, broken, pubPEM)
		assert.Error(t, err)
	})

	t.Run("truncated signature", func(t *testing.T) {
		broken := rec
		broken.Signature = base64.StdEncoding.EncodeToString([]byte("short"))
		out, err := verifyRecordAgainst(codec, broken, pubPEM)
		require.NoError(t, err)
		assert.False(t, out.Valid)
		assert.Equal(t, "signature_malformed", out.Reason)
	})

	t.Run("bad public key", func(t *testing.T) {
		_, err := verifyRecordAgainst(codec, rec, []byte("not a key"))
		assert.Error(t, err)
	})
}

func TestDecodeRecord(t *testing.T) {
	t.Run("keeps number text", func(t *testing.T) {
		rec, err := decodeRecord([]byte(`{"data":{"name":"Bob","credits":120.0},"authority_reference":"r","signature":"s"}`))
		require.NoError(t, err)
		assert.Equal(t, json.Number("120.0"), rec.Data["credits"])
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := decodeRecord([]byte(`{"data":{"name":"Bob"}}`))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := decodeRecord([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestRunReference(t *testing.T) {
	assert.Error(t, runReference("", "MIT", "2024", devMoESigningKey))
	assert.Error(t, runReference("garbage", "MIT", "2024", devMoESigningKey))
	assert.Error(t, runReference("garbage", "MIT", "2024", "short"))
}
