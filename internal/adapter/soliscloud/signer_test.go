package soliscloud

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDate = "Mon, 01 Jan 2024 00:00:00 GMT"

func TestSignatureIsDeterministic(t *testing.T) {

	require := require.New(t)

	signer := Signer{KeyID: "1300386381676", Secret: "secret"}
	body := map[string]int{"a": 1}

	first, err := signer.Sign("POST", "/v2/api/control", contentTypeJSON, body, testDate)
	require.NoError(err)
	second, err := signer.Sign("POST", "/v2/api/control", contentTypeJSON, body, testDate)
	require.NoError(err)

	require.Equal(first, second)
	require.Equal(`{"a":1}`, string(first.Body))

	sum := md5.Sum([]byte(`{"a":1}`))
	expectedMD5 := base64.StdEncoding.EncodeToString(sum[:])
	require.Equal(expectedMD5, first.ContentMD5)

	mac := hmac.New(sha1.New, []byte("secret"))
	mac.Write([]byte("POST\n" + expectedMD5 + "\n" + contentTypeJSON + "\n" + testDate + "\n/v2/api/control"))
	require.Equal("API 1300386381676:"+base64.StdEncoding.EncodeToString(mac.Sum(nil)), first.Authorization)
}

func TestSignatureChangesWithEveryInput(t *testing.T) {

	assert := assert.New(t)

	signer := Signer{KeyID: "key", Secret: "secret"}
	base, err := signer.Sign("POST", "/v2/api/control", contentTypeJSON, map[string]int{"a": 1}, testDate)
	require.NoError(t, err)

	variants := map[string]func() (Signature, error){
		"method": func() (Signature, error) {
			return signer.Sign("GET", "/v2/api/control", contentTypeJSON, map[string]int{"a": 1}, testDate)
		},
		"path": func() (Signature, error) {
			return signer.Sign("POST", "/v2/api/atRead", contentTypeJSON, map[string]int{"a": 1}, testDate)
		},
		"content type": func() (Signature, error) {
			return signer.Sign("POST", "/v2/api/control", "text/plain", map[string]int{"a": 1}, testDate)
		},
		"body": func() (Signature, error) {
			return signer.Sign("POST", "/v2/api/control", contentTypeJSON, map[string]int{"a": 2}, testDate)
		},
		"date": func() (Signature, error) {
			return signer.Sign("POST", "/v2/api/control", contentTypeJSON, map[string]int{"a": 1}, "Tue, 02 Jan 2024 00:00:00 GMT")
		},
		"secret": func() (Signature, error) {
			return Signer{KeyID: "key", Secret: "other"}.Sign("POST", "/v2/api/control", contentTypeJSON, map[string]int{"a": 1}, testDate)
		},
	}
	for name, fn := range variants {
		sig, err := fn()
		require.NoError(t, err)
		assert.NotEqual(base.Authorization, sig.Authorization, name)
	}
}

func TestStringBodyIsUsedVerbatim(t *testing.T) {

	signer := Signer{KeyID: "key", Secret: "secret"}
	sig, err := signer.Sign("POST", "/v1/api/inverterList", contentTypeJSON, `{"stationId":"1"}`, testDate)
	require.NoError(t, err)
	assert.Equal(t, `{"stationId":"1"}`, string(sig.Body))
}
