package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderWebhookID        = "webhook-id"
	HeaderWebhookTimestamp = "webhook-timestamp"
	HeaderWebhookSignature = "webhook-signature"

	secretPrefix     = "whsec_"
	signatureVersion = "v1"

	DefaultTolerance = 5 * time.Minute
)

var (
	ErrMissingHeaders    = errors.New("missing webhook signature headers")
	ErrInvalidTimestamp  = errors.New("invalid webhook timestamp")
	ErrTimestampTooOld   = errors.New("webhook timestamp too old")
	ErrTimestampTooNew   = errors.New("webhook timestamp too new")
	ErrSignatureMismatch = errors.New("no matching webhook signature")
)

// SignatureVerifier checks Standard Webhooks signatures, as sent by Supabase auth hooks.
type SignatureVerifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewSignatureVerifier accepts secrets as "v1,whsec_<base64>", "whsec_<base64>" or bare base64.
func NewSignatureVerifier(secret string, tolerance time.Duration) (*SignatureVerifier, error) {
	secret = strings.TrimSpace(secret)
	secret = strings.TrimPrefix(secret, signatureVersion+",")
	secret = strings.TrimPrefix(secret, secretPrefix)

	if secret == "" {
		return nil, errors.New("webhook secret is empty")
	}

	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("webhook secret is not valid base64: %w", err)
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	return &SignatureVerifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Verify checks the signature headers against body.
func (v *SignatureVerifier) Verify(headers http.Header, body []byte) error {
	id := headers.Get(HeaderWebhookID)
	timestamp := headers.Get(HeaderWebhookTimestamp)
	signatures := headers.Get(HeaderWebhookSignature)

	if id == "" || timestamp == "" || signatures == "" {
		return ErrMissingHeaders
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}

	now := v.now()
	sentAt := time.Unix(seconds, 0)

	if now.Sub(sentAt) > v.tolerance {
		return ErrTimestampTooOld
	}

	if sentAt.Sub(now) > v.tolerance {
		return ErrTimestampTooNew
	}

	expected := v.Sign(id, sentAt, body)

	for _, candidate := range strings.Fields(signatures) {
		version, signature, ok := strings.Cut(candidate, ",")
		if !ok || version != signatureVersion {
			continue
		}

		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return ErrSignatureMismatch
}

// Sign returns the base64 v1 signature of "<id>.<timestamp>.<body>".
func (v *SignatureVerifier) Sign(id string, sentAt time.Time, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id + "." + strconv.FormatInt(sentAt.Unix(), 10) + "."))
	mac.Write(body)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
