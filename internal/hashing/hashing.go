package hashing

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SecretSource hands out the current and previous hashing secrets. Either may
// be empty when it has not been provisioned.
type SecretSource interface {
	Current(ctx context.Context) (string, error)
	Previous(ctx context.Context) (string, error)
}

// Hash is the hex HMAC-SHA512 of id keyed by secret, or "" when secret is empty.
func Hash(id, secret string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// Static serves secrets fixed at startup, typically from configuration.
type Static struct {
	CurrentSecret  string
	PreviousSecret string
}

func (s Static) Current(context.Context) (string, error)  { return s.CurrentSecret, nil }
func (s Static) Previous(context.Context) (string, error) { return s.PreviousSecret, nil }

// Candidates lists the keys a subject may be stored under, in lookup order:
// hashed with the current secret, hashed with the previous secret, then raw.
// Empty and repeated keys are skipped.
func Candidates(ctx context.Context, src SecretSource, id string) ([]string, error) {
	cur, err := src.Current(ctx)
	if err != nil {
		return nil, err
	}
	prev, err := src.Previous(ctx)
	if err != nil {
		return nil, err
	}

	var out []string
	seen := map[string]struct{}{}
	for _, k := range []string{Hash(id, cur), Hash(id, prev), id} {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}
