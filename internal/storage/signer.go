// Package storage builds URLs for objects kept in the file bucket (product
// images, producer logos and verification documents).
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrExpired      = errors.New("signed url expired")
	ErrBadSignature = errors.New("signed url signature mismatch")
)

// URLSigner turns object paths into public or time-limited URLs.
type URLSigner struct {
	host   string
	secret []byte
	now    func() time.Time
}

func NewURLSigner(host, secret string) *URLSigner {
	return &URLSigner{
		host:   strings.TrimRight(host, "/"),
		secret: []byte(secret),
		now:    time.Now,
	}
}

// PublicURL returns the public URL of path. Absolute URLs and empty paths are
// returned unchanged.
func (s *URLSigner) PublicURL(path string) string {
	if path == "" || isAbsolute(path) || s.host == "" {
		return path
	}
	return s.host + "/public/" + escapePath(path)
}

// SignedURL returns a URL for path valid for ttl. Used for private objects
// such as producer documents.
func (s *URLSigner) SignedURL(path string, ttl time.Duration) string {
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(path, expires))
	return s.host + "/signed/" + escapePath(path) + "?" + q.Encode()
}

// Verify checks the expires and sig query values produced by SignedURL.
func (s *URLSigner) Verify(path, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(path, exp))) {
		return ErrBadSignature
	}
	if s.now().Unix() > exp {
		return ErrExpired
	}
	return nil
}

func (s *URLSigner) sign(path string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.TrimLeft(path, "/")))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func escapePath(path string) string {
	parts := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
