package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/bookforge/internal/config"
	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
	"git.home.luguber.info/inful/bookforge/internal/logfields"
	"git.home.luguber.info/inful/bookforge/internal/retry"
)

// ForgejoPublisher implements Publisher against the Forgejo release API.
type ForgejoPublisher struct {
	httpClient *http.Client
	apiURL     string
	owner      string
	repo       string
	tag        string
	token      string
	policy     retry.Policy

	// headFunc, when set, returns the manuscript HEAD at upload time. A
	// mismatch with the artifact's revision aborts the upload so a slower,
	// earlier run cannot overwrite a newer publication.
	headFunc func() (string, error)
}

// NewForgejoPublisher creates a publisher for the configured release channel.
func NewForgejoPublisher(cfg config.ReleaseConfig) *ForgejoPublisher {
	return &ForgejoPublisher{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		apiURL:     cfg.APIURL,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		tag:        cfg.Tag,
		token:      cfg.Token,
		policy:     retry.DefaultPolicy(),
	}
}

// WithRetryPolicy overrides the transient-failure backoff (fluent helper).
func (p *ForgejoPublisher) WithRetryPolicy(policy retry.Policy) *ForgejoPublisher {
	p.policy = policy
	return p
}

// WithHeadFunc enables the stale-revision guard (fluent helper).
func (p *ForgejoPublisher) WithHeadFunc(f func() (string, error)) *ForgejoPublisher {
	p.headFunc = f
	return p
}

type forgejoRelease struct {
	ID      int64          `json:"id"`
	TagName string         `json:"tag_name"`
	Assets  []forgejoAsset `json:"assets"`
}

type forgejoAsset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Publish uploads the artifact under the fixed tag. The existing asset of the
// same name is deleted immediately before the new upload, so a reader sees
// either the old asset or the fully uploaded new one, never a torn object.
func (p *ForgejoPublisher) Publish(ctx context.Context, artifact Artifact) error {
	if err := p.guardRevision(artifact); err != nil {
		return err
	}

	// Transient forge failures (timeouts, 5xx) are retried per the policy;
	// everything else fails the run immediately.
	return retry.Do(ctx, p.policy, func() error {
		return p.publishOnce(ctx, artifact)
	})
}

func (p *ForgejoPublisher) publishOnce(ctx context.Context, artifact Artifact) error {
	rel, err := p.getOrCreateRelease(ctx, artifact.Notes)
	if err != nil {
		return err
	}

	for _, asset := range rel.Assets {
		if asset.Name != artifact.Name {
			continue
		}
		if err := p.deleteAsset(ctx, rel.ID, asset.ID); err != nil {
			return err
		}
		slog.Debug("Replaced previous release asset",
			logfields.Tag(p.tag),
			slog.String("asset", asset.Name))
	}

	if err := p.uploadAsset(ctx, rel.ID, artifact); err != nil {
		return err
	}

	slog.Info("Artifact published",
		logfields.Tag(p.tag),
		logfields.Artifact(artifact.Name),
		logfields.Revision(artifact.Revision))
	return nil
}

func (p *ForgejoPublisher) guardRevision(artifact Artifact) error {
	if p.headFunc == nil || artifact.Revision == "" {
		return nil
	}
	head, err := p.headFunc()
	if err != nil {
		return err
	}
	if head != "" && head != artifact.Revision {
		return apperrors.StaleRevision(artifact.Revision, head)
	}
	return nil
}

func (p *ForgejoPublisher) getOrCreateRelease(ctx context.Context, notes string) (*forgejoRelease, error) {
	var rel forgejoRelease
	endpoint := fmt.Sprintf("repos/%s/%s/releases/tags/%s", p.owner, p.repo, url.PathEscape(p.tag))

	status, err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &rel)
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK {
		if notes != "" {
			// Keep the release body current with the notes file.
			update := map[string]any{"body": notes}
			patch := fmt.Sprintf("repos/%s/%s/releases/%d", p.owner, p.repo, rel.ID)
			if _, err := p.doJSON(ctx, http.MethodPatch, patch, update, nil); err != nil {
				return nil, err
			}
		}
		return &rel, nil
	}
	if status != http.StatusNotFound {
		return nil, apperrors.PublishFailed(p.tag, fmt.Errorf("unexpected status %d fetching release", status))
	}

	body := map[string]any{
		"tag_name": p.tag,
		"name":     p.tag,
		"body":     notes,
	}
	create := fmt.Sprintf("repos/%s/%s/releases", p.owner, p.repo)
	status, err = p.doJSON(ctx, http.MethodPost, create, body, &rel)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, apperrors.PublishFailed(p.tag, fmt.Errorf("unexpected status %d creating release", status))
	}
	return &rel, nil
}

func (p *ForgejoPublisher) deleteAsset(ctx context.Context, releaseID, assetID int64) error {
	endpoint := fmt.Sprintf("repos/%s/%s/releases/%d/assets/%d", p.owner, p.repo, releaseID, assetID)
	status, err := p.doJSON(ctx, http.MethodDelete, endpoint, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return apperrors.PublishFailed(p.tag, fmt.Errorf("unexpected status %d deleting asset", status))
	}
	return nil
}

func (p *ForgejoPublisher) uploadAsset(ctx context.Context, releaseID int64, artifact Artifact) error {
	file, err := os.Open(artifact.Path)
	if err != nil {
		return apperrors.PublishFailed(p.tag, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("attachment", artifact.Name)
	if err != nil {
		return apperrors.PublishFailed(p.tag, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return apperrors.PublishFailed(p.tag, err)
	}
	if err := writer.Close(); err != nil {
		return apperrors.PublishFailed(p.tag, err)
	}

	endpoint := fmt.Sprintf("repos/%s/%s/releases/%d/assets?name=%s",
		p.owner, p.repo, releaseID, url.QueryEscape(artifact.Name))
	req, err := p.newRequest(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.PublishFailed(p.tag, err).MarkRetryable()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return p.statusError(resp)
	}
	return nil
}

// newRequest builds an API request with auth headers. Endpoint is a path
// relative to the API URL; query strings are preserved.
func (p *ForgejoPublisher) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	cleanEndpoint := strings.TrimPrefix(endpoint, "/")

	var rawQuery string
	if idx := strings.Index(cleanEndpoint, "?"); idx != -1 {
		rawQuery = cleanEndpoint[idx+1:]
		cleanEndpoint = cleanEndpoint[:idx]
	}

	u, err := url.Parse(p.apiURL)
	if err != nil {
		return nil, apperrors.PublishFailed(p.tag, fmt.Errorf("parse API URL: %w", err))
	}
	basePath := strings.TrimSuffix(u.Path, "/")
	u.Path = path.Join(basePath, cleanEndpoint)
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, apperrors.PublishFailed(p.tag, err)
	}
	// Forgejo uses the "token " auth prefix instead of "Bearer ".
	req.Header.Set("Authorization", "token "+p.token)
	req.Header.Set("User-Agent", "BookForge/1.0")
	return req, nil
}

// doJSON executes a JSON request, decoding into result when non-nil. The
// HTTP status is returned so callers can branch on 404 without string checks.
func (p *ForgejoPublisher) doJSON(ctx context.Context, method, endpoint string, body, result any) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, apperrors.PublishFailed(p.tag, err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := p.newRequest(ctx, method, endpoint, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, apperrors.PublishFailed(p.tag, err).MarkRetryable()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return resp.StatusCode, p.statusError(resp)
	}
	if result != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, apperrors.PublishFailed(p.tag, fmt.Errorf("decode response: %w", err))
		}
	}
	return resp.StatusCode, nil
}

func (p *ForgejoPublisher) statusError(resp *http.Response) error {
	limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")
	err := apperrors.PublishFailed(p.tag, fmt.Errorf("forge API error: %s", resp.Status)).
		WithContext("status", resp.StatusCode).
		WithContext("body", bodyStr)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		err.Category = apperrors.CategoryAuth
	}
	if resp.StatusCode >= 500 {
		err.MarkRetryable()
	}
	return err
}
