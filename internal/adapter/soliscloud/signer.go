package soliscloud

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Signature holds everything a signed request needs besides the date.
type Signature struct {
	Body          []byte
	ContentMD5    string
	Authorization string
}

// Signer signs SolisCloud API requests with the account key and secret.
type Signer struct {
	KeyID  string
	Secret string
}

// Sign canonicalizes the body and computes the Content-MD5 and Authorization
// values. The result depends only on its inputs, so callers pass the date.
func (s Signer) Sign(method, path, contentType string, body any, date string) (Signature, error) {
	payload, err := canonicalBody(body)
	if err != nil {
		return Signature{}, err
	}
	sum := md5.Sum(payload)
	contentMD5 := base64.StdEncoding.EncodeToString(sum[:])

	stringToSign := strings.Join([]string{method, contentMD5, contentType, date, path}, "\n")
	mac := hmac.New(sha1.New, []byte(s.Secret))
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return Signature{
		Body:          payload,
		ContentMD5:    contentMD5,
		Authorization: "API " + s.KeyID + ":" + signature,
	}, nil
}

func canonicalBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return []byte{}, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return payload, nil
	}
}
