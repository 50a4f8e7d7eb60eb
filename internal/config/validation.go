package config

import (
	"path/filepath"
	"strings"

	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
)

// Validate checks the configuration for internally inconsistent or unusable values.
// Release credentials are not required here; they are only checked when a
// release-mode run actually reaches the publisher.
func (c *Config) Validate() error {
	if c.Manuscript.Entry == "" {
		return apperrors.ValidationFailed("manuscript.entry", "entry document must be set")
	}
	if filepath.IsAbs(c.Manuscript.Entry) {
		return apperrors.ValidationFailed("manuscript.entry", "entry must be relative to manuscript.root")
	}
	if !strings.HasSuffix(c.Manuscript.Entry, ".tex") {
		return apperrors.ValidationFailed("manuscript.entry", "entry document must be a .tex file")
	}
	if c.Build.Timeout < 0 {
		return apperrors.ValidationFailed("build.timeout", "timeout must not be negative")
	}
	if c.Daemon != nil {
		if fields := strings.Fields(c.Daemon.Schedule); len(fields) != 5 && len(fields) != 6 {
			return apperrors.ValidationFailed("daemon.schedule", "expected a 5- or 6-field cron expression")
		}
	}
	if c.Notify != nil && c.Notify.Enabled && c.Notify.URL == "" {
		return apperrors.ValidationFailed("notify.url", "NATS URL required when notify is enabled")
	}
	return nil
}

// ValidateForRelease extends Validate with the fields the publisher needs.
func (c *Config) ValidateForRelease() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Release.APIURL == "" {
		return apperrors.ValidationFailed("release.api_url", "forge API URL required for release runs")
	}
	if c.Release.Owner == "" || c.Release.Repo == "" {
		return apperrors.ValidationFailed("release.owner/repo", "release repository coordinates required")
	}
	if c.Release.Token == "" {
		return apperrors.ValidationFailed("release.token", "forge token required for release runs")
	}
	return nil
}
