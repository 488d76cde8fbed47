// Package share issues and resolves anonymous share tokens for files.
package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/file"
	"github.com/totegamma/mediastore/internal/model"
)

// tokenBytes gives tokens 160 bits of entropy.
const tokenBytes = 20

type Service struct {
	files   *file.Registry
	baseURL string
}

func New(files *file.Registry, publicBaseURL string) *Service {
	return &Service{files: files, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// GetOrCreateShareToken returns the token of a file, issuing one on first use.
// Tokens never change once issued.
func (s *Service) GetOrCreateShareToken(ctx context.Context, ownerID, fileID string) (string, error) {
	f, err := s.files.Get(ctx, ownerID, fileID)
	if err != nil {
		return "", err
	}
	if f.ShareToken != nil {
		return *f.ShareToken, nil
	}

	token, err := newToken()
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInternal, err)
	}
	return s.files.SetShareToken(ctx, ownerID, fileID, token)
}

// Resolve finds the file a token points at. No owner is needed.
func (s *Service) Resolve(ctx context.Context, token string) (model.File, error) {
	if !validToken(token) {
		return model.File{}, fmt.Errorf("share token: %w", apperr.ErrNotFound)
	}
	return s.files.FindByShareToken(ctx, token)
}

// URL returns the public link for token.
func (s *Service) URL(token string) string {
	return s.baseURL + "/share/" + token
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func validToken(token string) bool {
	if len(token) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
